// Package gen produces synthetic NDJSON transfer-log files for local
// testing of the ingestion pipeline.
package gen

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/rotisserie/eris"
)

// Options controls the shape of the generated file.
type Options struct {
	// Lines is the number of lines to emit.
	Lines int

	// MalformedRate is the fraction of lines emitted as truncated,
	// unparseable JSON.
	MalformedRate float64

	// BlankRate is the fraction of lines emitted empty.
	BlankRate float64

	// MissingFieldRate is the per-record chance of dropping one of the
	// optional fields, to exercise null handling downstream.
	MissingFieldRate float64

	// Seed makes output reproducible. Zero seeds from the clock.
	Seed int64
}

// Generator writes synthetic NDJSON transfer logs.
type Generator struct {
	faker *gofakeit.Faker
	rng   *rand.Rand
	opts  Options
}

var actions = []string{"STOR", "RETR", "DELE", "APPE", "RNTO"}

var serverResponses = []string{
	"226 Transfer complete",
	"250 Requested file action okay",
	"550 Requested action not taken",
	"426 Connection closed; transfer aborted",
}

// New creates a Generator.
func New(opts Options) *Generator {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		faker: gofakeit.New(seed),
		rng:   rand.New(rand.NewSource(seed)),
		opts:  opts,
	}
}

// WriteNDJSON emits opts.Lines lines to w: well-formed records mixed
// with malformed and blank lines at the configured rates.
func (g *Generator) WriteNDJSON(w io.Writer) error {
	bw := bufio.NewWriter(w)

	for i := 0; i < g.opts.Lines; i++ {
		switch {
		case g.rng.Float64() < g.opts.BlankRate:
			// Blank line: the processor skips these entirely.
		case g.rng.Float64() < g.opts.MalformedRate:
			if _, err := bw.WriteString(g.malformedLine()); err != nil {
				return eris.Wrap(err, "gen: write line")
			}
		default:
			payload, err := json.Marshal(g.record())
			if err != nil {
				return eris.Wrap(err, "gen: marshal record")
			}
			if _, err := bw.Write(payload); err != nil {
				return eris.Wrap(err, "gen: write line")
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return eris.Wrap(err, "gen: write newline")
		}
	}

	return eris.Wrap(bw.Flush(), "gen: flush")
}

// record builds one well-formed transfer-log event in the upstream
// field vocabulary, including the StatusCode field the loader ignores.
func (g *Generator) record() map[string]any {
	eventTime := g.faker.DateRange(
		time.Now().UTC().Add(-48*time.Hour),
		time.Now().UTC(),
	)
	user := g.faker.Username()
	file := fmt.Sprintf("%s_%d.dat", g.faker.Word(), g.faker.Number(1000, 9999))

	rec := map[string]any{
		"EventDt":        eventTime.Format("2006-01-02T15:04:05"),
		"Source":         g.faker.RandomString([]string{"ftp01", "ftp02", "sftp-gw"}),
		"Filename":       file,
		"Bytes":          g.faker.Number(128, 50_000_000),
		"UserName":       user,
		"CustId":         g.faker.Number(1000, 99999),
		"HashCode":       g.rng.Int63(),
		"Action":         g.faker.RandomString(actions),
		"IpAddress":      g.faker.IPv4Address(),
		"PartnerName":    g.faker.Company(),
		"SessionId":      g.faker.UUID(),
		"ServerResponse": g.faker.RandomString(serverResponses),
		"RawData":        fmt.Sprintf("%s %s %s", user, file, eventTime.Format(time.RFC3339)),
		"StatusCode":     g.faker.Number(200, 550),
	}

	if g.opts.MissingFieldRate > 0 && g.rng.Float64() < g.opts.MissingFieldRate {
		optional := []string{"Bytes", "CustId", "HashCode", "PartnerName", "SessionId", "RawData", "EventDt"}
		delete(rec, g.faker.RandomString(optional))
	}

	return rec
}

// malformedLine returns a truncated JSON fragment that fails to parse.
func (g *Generator) malformedLine() string {
	stamp := g.faker.DateRange(
		time.Now().UTC().Add(-48*time.Hour),
		time.Now().UTC(),
	)
	return fmt.Sprintf(`{"EventDt": "%s", "Source": "ftp01", "Filename`,
		stamp.Format("2006-01-02T15:04:05"))
}
