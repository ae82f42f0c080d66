// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

// Command preview prints group standings and the knockout bracket for a
// season described in a JSON file, without a server or database.
package main

import (
	"encoding/json"
	"errors"
	"io"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
)

type options struct {
	File    string `short:"f" long:"file" description:"season JSON file (reads stdin when omitted)"`
	Verbose bool   `short:"v" long:"verbose" description:"log each evaluated match"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	if opts.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	var in io.Reader
	switch {
	case opts.File != "":
		f, err := os.Open(opts.File)
		if err != nil {
			log.WithError(err).Fatal("Could not open season file")
		}
		defer f.Close()
		in = f
	case stdinHasData():
		in = os.Stdin
	default:
		log.Fatal("please supply --file or pipe season JSON to stdin")
	}

	var season Season
	if err := json.NewDecoder(in).Decode(&season); err != nil {
		log.WithError(err).Fatal("Invalid season JSON")
	}

	report, err := Evaluate(season)
	if err != nil {
		log.WithError(err).Fatal("Could not evaluate season")
	}
	for _, g := range report.Groups {
		for _, m := range g.Matches {
			log.WithFields(logrus.Fields{
				"group":   g.Standings.Group,
				"player1": m.Player1,
				"player2": m.Player2,
				"status":  m.Status,
				"summary": m.Result.Summary(),
			}).Debug("Match evaluated")
		}
	}
	if report.BracketErr != nil {
		log.WithError(report.BracketErr).Warn("Bracket not drawn")
	}

	Render(os.Stdout, season, report)
}

func stdinHasData() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) == 0
}
