package curate

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/anatolykoptev/go_titlegen/internal/engine"
	"github.com/anatolykoptev/go_titlegen/internal/pipeline"
)

// DefaultRPS paces judge calls.
const DefaultRPS = 10

// Decision is the judge's verdict on one video.
type Decision struct {
	Keep   bool
	Reason string
}

// ParseDecision reads a KEEP/REMOVE response. REMOVE wins when both
// appear; anything else keeps the row and records the response as unclear.
func ParseDecision(resp string) Decision {
	upper := strings.ToUpper(resp)
	switch {
	case strings.Contains(upper, "REMOVE"):
		return Decision{Keep: false, Reason: resp}
	case strings.Contains(upper, "KEEP"):
		return Decision{Keep: true, Reason: resp}
	}
	return Decision{Keep: true, Reason: "UNCLEAR: " + resp}
}

// Judge asks an LLM whether a trending video is a good title example.
type Judge struct {
	LLM     engine.Completer
	Limiter *rate.Limiter
	Log     *slog.Logger
}

// NewJudge paces llm at rps requests per second.
func NewJudge(llm engine.Completer, rps float64) *Judge {
	if rps <= 0 {
		rps = DefaultRPS
	}
	return &Judge{LLM: llm, Limiter: rate.NewLimiter(rate.Limit(rps), 1)}
}

func (j *Judge) log() *slog.Logger {
	if j.Log != nil {
		return j.Log
	}
	return slog.Default()
}

// Decide judges one video. Errors keep the video with an "ERROR: " reason.
func (j *Judge) Decide(ctx context.Context, title, channel, tags string) Decision {
	d, err := j.decide(ctx, title, channel, tags)
	if err != nil {
		return Decision{Keep: true, Reason: "ERROR: " + err.Error()}
	}
	return d
}

// decide returns an error only when the verdict could not be reached because
// pacing failed or ctx ended; other LLM errors keep the video.
func (j *Judge) decide(ctx context.Context, title, channel, tags string) (Decision, error) {
	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx); err != nil {
			return Decision{}, fmt.Errorf("rate limit: %w", err)
		}
	}
	resp, err := j.LLM.Complete(ctx, engine.Completion{
		Prompt: engine.JudgePrompt(title, channel, engine.TagsOrDefault(tags)),
	})
	if err != nil {
		if ctx.Err() != nil {
			return Decision{}, err
		}
		j.log().Error("curate: judge failed", slog.String("title", title), slog.Any("error", err))
		return Decision{Keep: true, Reason: "ERROR: " + err.Error()}, nil
	}
	return ParseDecision(resp), nil
}

// CurateStats counts verdicts. Failed rows land in the removed output with a
// "FAILED: " reason.
type CurateStats struct {
	Total   int
	Kept    int
	Removed int
	Failed  int
}

type verdict struct {
	row    int
	failed bool
	Decision
}

// Curate judges every row of the CSV in r on the worker pool and writes the
// kept rows to kept and the removed rows, plus a reason column, to removed.
// Both outputs preserve input order. When ctx ends before every row is
// judged, Curate returns the ctx error and writes nothing.
func (j *Judge) Curate(ctx context.Context, r io.Reader, kept, removed io.Writer, opts pipeline.Options) (CurateStats, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return CurateStats{}, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return CurateStats{}, errors.New("read csv: empty input")
	}
	header, body := rows[0], rows[1:]
	idx, err := columnIndex(header, []string{"title", "channelTitle", "tags"})
	if err != nil {
		return CurateStats{}, err
	}

	ids := make([]string, len(body))
	for i := range body {
		ids[i] = strconv.Itoa(i)
	}
	worker := func(ctx context.Context, id string) pipeline.Outcome[verdict] {
		i, _ := strconv.Atoi(id)
		row := body[i]
		d, err := j.decide(ctx, field(row, idx["title"]), field(row, idx["channelTitle"]), field(row, idx["tags"]))
		if err != nil {
			return pipeline.Fail[verdict](id, err)
		}
		j.log().Debug("curate: verdict",
			slog.String("title", field(row, idx["title"])),
			slog.Bool("keep", d.Keep),
			slog.String("reason", d.Reason))
		return pipeline.Succeed(id, verdict{row: i, Decision: d})
	}

	var failed []verdict
	onFail := func(o pipeline.Outcome[verdict]) {
		if o.Kind != pipeline.KindFailed {
			return
		}
		i, _ := strconv.Atoi(o.ID)
		failed = append(failed, verdict{row: i, failed: true, Decision: Decision{Reason: "FAILED: " + o.Reason}})
	}
	verdicts, _ := pipeline.Execute(ctx, ids, worker, opts, onFail)
	if err := ctx.Err(); err != nil {
		return CurateStats{}, fmt.Errorf("curate interrupted: %w", err)
	}
	if len(failed) > 0 {
		j.log().Warn("curate: rows failed", slog.Int("failed", len(failed)))
	}
	verdicts = append(verdicts, failed...)
	sort.Slice(verdicts, func(a, b int) bool { return verdicts[a].row < verdicts[b].row })

	kw, rw := csv.NewWriter(kept), csv.NewWriter(removed)
	if err := kw.Write(header); err != nil {
		return CurateStats{}, err
	}
	if err := rw.Write(append(append([]string{}, header...), "reason")); err != nil {
		return CurateStats{}, err
	}

	stats := CurateStats{Total: len(body)}
	for _, v := range verdicts {
		row := body[v.row]
		switch {
		case v.failed:
			stats.Failed++
			err = rw.Write(append(append([]string{}, row...), v.Reason))
		case v.Keep:
			stats.Kept++
			err = kw.Write(row)
		default:
			stats.Removed++
			err = rw.Write(append(append([]string{}, row...), v.Reason))
		}
		if err != nil {
			return stats, err
		}
	}
	kw.Flush()
	rw.Flush()
	if err := kw.Error(); err != nil {
		return stats, err
	}
	return stats, rw.Error()
}

func field(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
