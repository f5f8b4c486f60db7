// Command query demonstrates the basic connect → cursor → execute →
// fetch flow against a real PostgreSQL server, optionally loaded from a
// YAML connection profile.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/tinypg/tinypg"
	"github.com/tinypg/tinypg/internal/config"
)

func main() {
	profilePath := flag.String("config", "", "path to a YAML connection profile (overrides the flags below)")
	host := flag.String("host", "localhost", "server host")
	port := flag.Int("port", 5432, "server port")
	user := flag.String("user", "postgres", "username")
	password := flag.String("password", "", "password")
	database := flag.String("database", "postgres", "database name")
	flag.Parse()

	var conn *tinypg.Connection
	var err error

	if *profilePath != "" {
		profile, cerr := config.Load(*profilePath)
		if cerr != nil {
			slog.Error("loading connection profile", "error", cerr)
			os.Exit(1)
		}
		conn, err = tinypg.Connect(profile.Host, profile.Port, profile.User, profile.Password, profile.Database,
			tinypg.WithTimeout(profile.Timeout),
			tinypg.WithAutocommit(profile.AutocommitOrDefault()))
	} else {
		conn, err = tinypg.Connect(*host, *port, *user, *password, *database)
	}
	if err != nil {
		slog.Error("connecting", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	cur := conn.Cursor()
	defer cur.Close()

	if err := cur.Execute("SELECT %s::int AS answer, %s::text AS greeting", 42, "hello"); err != nil {
		slog.Error("executing query", "error", err)
		os.Exit(1)
	}

	rows, err := cur.FetchAll()
	if err != nil {
		slog.Error("fetching rows", "error", err)
		os.Exit(1)
	}

	for _, row := range rows {
		fmt.Println(row)
	}
}
