package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cpacia/lfg-server/matchplay"
	"github.com/gocolly/colly"
	"gorm.io/datatypes"
)

var errNoScorecard = errors.New("no scorecard table found")

// scrapeCourse reads a BlueGolf course scorecard and returns the course
// with its par and handicap index rows filled in. The Hole header row
// decides which columns belong to which hole so Out/In/Total columns are
// ignored.
func scrapeCourse(url string) (*Course, error) {
	c := colly.NewCollector(
		// Optional: make it look like Chrome
		colly.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
			"AppleWebKit/537.36 (KHTML, like Gecko) " +
			"Chrome/115.0.0.0 Safari/537.36"),
	)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
		r.Headers.Set("Cache-Control", "no-cache")
	})

	course := &Course{SourceUrl: url}
	var (
		found    bool
		parseErr error
	)

	c.OnHTML("h1", func(e *colly.HTMLElement) {
		if course.Name == "" {
			course.Name = strings.TrimSpace(e.Text)
		}
	})

	c.OnHTML("table.scorecard", func(e *colly.HTMLElement) {
		if found {
			return
		}
		profile, tees, err := parseScorecard(e.DOM)
		if err != nil {
			parseErr = err
			return
		}
		found = true
		parseErr = nil
		course.Tees = tees
		course.Par = datatypes.NewJSONType(profile.Par)
		course.HoleIndexes = datatypes.NewJSONType(profile.Index)
	})

	if err := c.Visit(url); err != nil {
		return nil, err
	}
	c.Wait()

	if parseErr != nil {
		return nil, parseErr
	}
	if !found {
		return nil, errNoScorecard
	}
	return course, nil
}

func parseScorecard(table *goquery.Selection) (matchplay.HoleProfile, string, error) {
	var (
		profile  matchplay.HoleProfile
		holeCols = make(map[int]int)
		parSeen  int
		idxSeen  int
	)

	readRow := func(cells *goquery.Selection, dst *[matchplay.HolesPerRound]int) int {
		n := 0
		cells.Each(func(j int, cell *goquery.Selection) {
			hole, ok := holeCols[j]
			if !ok {
				return
			}
			v, err := strconv.Atoi(strings.TrimSpace(cell.Text()))
			if err != nil {
				return
			}
			dst[hole-1] = v
			n++
		})
		return n
	}

	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("th, td")
		if cells.Length() == 0 {
			return
		}
		label := strings.ToLower(strings.TrimSpace(cells.First().Text()))
		switch {
		case label == "hole":
			cells.Each(func(j int, cell *goquery.Selection) {
				n, err := strconv.Atoi(strings.TrimSpace(cell.Text()))
				if err == nil && n >= 1 && n <= matchplay.HolesPerRound {
					holeCols[j] = n
				}
			})
		case label == "par" && parSeen == 0:
			parSeen = readRow(cells, &profile.Par)
		case (strings.HasPrefix(label, "handicap") || label == "hcp") && idxSeen == 0:
			idxSeen = readRow(cells, &profile.Index)
		}
	})

	if len(holeCols) != matchplay.HolesPerRound {
		return profile, "", fmt.Errorf("scorecard lists %d holes", len(holeCols))
	}
	if parSeen != matchplay.HolesPerRound {
		return profile, "", fmt.Errorf("scorecard par row has %d holes", parSeen)
	}
	if idxSeen != matchplay.HolesPerRound {
		return profile, "", fmt.Errorf("scorecard handicap row has %d holes", idxSeen)
	}
	if err := profile.Validate(); err != nil {
		return profile, "", err
	}
	return profile, strings.TrimSpace(table.Find("caption").First().Text()), nil
}
