// internal/ingest/results_consumer.go
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/codr1/leaguestandings/internal/config"
	"github.com/codr1/leaguestandings/internal/leagues"
	"github.com/codr1/leaguestandings/internal/standings"
)

const maxRecordAttempts = 3

// messageReader is the part of *kafka.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// ResultRecorder stores a match result. *standings.Service satisfies it.
type ResultRecorder interface {
	RecordResult(ctx context.Context, result leagues.MatchResult) (leagues.MatchResult, error)
}

// ResultsConsumer feeds match result events from Kafka into the standings
// service.
type ResultsConsumer struct {
	cfg      config.EventsConfig
	reader   messageReader
	closer   io.Closer
	recorder ResultRecorder
	logger   zerolog.Logger
	poll     time.Duration
	backoff  time.Duration
}

func NewResultsConsumer(cfg config.EventsConfig, recorder ResultRecorder) (*ResultsConsumer, error) {
	if recorder == nil {
		return nil, errors.New("results consumer requires a recorder")
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("results topic must not be empty")
	}
	if strings.TrimSpace(cfg.GroupID) == "" {
		return nil, errors.New("consumer group must not be empty")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return newResultsConsumer(cfg, reader, reader, recorder), nil
}

func newResultsConsumer(cfg config.EventsConfig, reader messageReader, closer io.Closer, recorder ResultRecorder) *ResultsConsumer {
	poll := cfg.PollTimeout
	if poll <= 0 {
		poll = 5 * time.Second
	}
	return &ResultsConsumer{
		cfg:      cfg,
		reader:   reader,
		closer:   closer,
		recorder: recorder,
		logger:   log.With().Str("component", "results_consumer").Str("topic", cfg.Topic).Logger(),
		poll:     poll,
		backoff:  500 * time.Millisecond,
	}
}

func (c *ResultsConsumer) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// Run consumes until ctx is cancelled or the reader is closed.
func (c *ResultsConsumer) Run(ctx context.Context) error {
	c.logger.Info().
		Str("group", c.cfg.GroupID).
		Strs("brokers", c.cfg.Brokers).
		Dur("poll_timeout", c.poll).
		Msg("Results consumer started")
	defer c.logger.Info().Msg("Results consumer stopped")

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fetchCtx, cancel := context.WithTimeout(ctx, c.poll)
		msg, err := c.reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			if errors.Is(err, context.Canceled) {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				continue
			}
			if errors.Is(err, io.ErrClosedPipe) || errors.Is(err, kafka.ErrGroupClosed) || errors.Is(err, io.EOF) {
				return nil
			}
			c.logger.Error().Err(err).Msg("Failed to fetch message")
			continue
		}

		if !c.handle(ctx, msg) {
			continue
		}

		commitCtx, commitCancel := context.WithTimeout(ctx, c.poll)
		if err := c.reader.CommitMessages(commitCtx, msg); err != nil {
			if !(errors.Is(err, context.Canceled) && ctx.Err() != nil) {
				c.logger.Error().Err(err).Int64("offset", msg.Offset).Msg("Failed to commit message")
			}
		}
		commitCancel()
	}
}

// handle records one message and reports whether its offset may be
// committed. Bad payloads and rejected results are committed so they do not
// block the partition.
func (c *ResultsConsumer) handle(ctx context.Context, msg kafka.Message) bool {
	logger := c.logger.With().Int("partition", msg.Partition).Int64("offset", msg.Offset).Logger()

	result, err := decodeResultMessage(msg.Key, msg.Value)
	if err != nil {
		logger.Warn().Err(err).Msg("Skipping undecodable match result")
		return true
	}
	logger = logger.With().Str("match_id", result.MatchID).Logger()

	for attempt := 1; ; attempt++ {
		_, err = c.recorder.RecordResult(logger.WithContext(ctx), result)
		if err == nil {
			logger.Debug().Msg("Recorded match result event")
			return true
		}
		if permanent(err) {
			logger.Warn().Err(err).Msg("Rejected match result event")
			return true
		}
		if attempt == maxRecordAttempts {
			logger.Error().Err(err).Int("attempts", attempt).Msg("Giving up on match result event")
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(c.backoff * time.Duration(attempt)):
		}
	}
}

func permanent(err error) bool {
	return errors.Is(err, standings.ErrInvalidResult) ||
		errors.Is(err, standings.ErrNotFound) ||
		errors.Is(err, standings.ErrConflict)
}

// resultEnvelope mirrors the published match result while ignoring fields
// the standings engine does not need.
type resultEnvelope struct {
	Type          string          `json:"type"`
	MatchID       string          `json:"matchId"`
	LeagueID      string          `json:"leagueId"`
	SeasonID      string          `json:"seasonId"`
	HomeTeamID    string          `json:"homeTeamId"`
	AwayTeamID    string          `json:"awayTeamId"`
	HomeScore     json.RawMessage `json:"homeScore"`
	AwayScore     json.RawMessage `json:"awayScore"`
	Periods       json.RawMessage `json:"periodBreakdown"`
	Status        string          `json:"status"`
	ForfeitTeamID string          `json:"forfeitTeamId"`
}

// decodeResultMessage turns an event payload into a match result. Scores may
// be numbers or numeric strings; the message key stands in for a missing
// match ID.
func decodeResultMessage(key, raw []byte) (leagues.MatchResult, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var env resultEnvelope
	if err := dec.Decode(&env); err != nil {
		return leagues.MatchResult{}, fmt.Errorf("decode result payload: %w", err)
	}
	if env.Type != "" && env.Type != "match.result" {
		return leagues.MatchResult{}, fmt.Errorf("unexpected event type %q", env.Type)
	}

	result := leagues.MatchResult{
		MatchID:       strings.TrimSpace(env.MatchID),
		LeagueID:      strings.TrimSpace(env.LeagueID),
		SeasonID:      strings.TrimSpace(env.SeasonID),
		HomeTeamID:    strings.TrimSpace(env.HomeTeamID),
		AwayTeamID:    strings.TrimSpace(env.AwayTeamID),
		ForfeitTeamID: strings.TrimSpace(env.ForfeitTeamID),
	}
	if result.MatchID == "" {
		result.MatchID = strings.TrimSpace(string(key))
	}
	if result.MatchID == "" {
		return leagues.MatchResult{}, errors.New("matchId missing or empty")
	}
	if result.LeagueID == "" || result.SeasonID == "" {
		return leagues.MatchResult{}, errors.New("leagueId and seasonId are required")
	}

	status, ok := leagues.ParseMatchStatus(env.Status)
	if !ok {
		return leagues.MatchResult{}, fmt.Errorf("unknown status %q", env.Status)
	}
	result.Status = status

	var err error
	if result.HomeScore, err = parseScore("homeScore", env.HomeScore); err != nil {
		return leagues.MatchResult{}, err
	}
	if result.AwayScore, err = parseScore("awayScore", env.AwayScore); err != nil {
		return leagues.MatchResult{}, err
	}
	if len(env.Periods) > 0 && string(env.Periods) != "null" {
		if err := json.Unmarshal(env.Periods, &result.Periods); err != nil {
			return leagues.MatchResult{}, fmt.Errorf("decode periodBreakdown: %w", err)
		}
	}
	return result, nil
}

// parseScore accepts a JSON integer or a string holding one. A missing score
// is zero.
func parseScore(field string, raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var number json.Number
	if err := json.Unmarshal(raw, &number); err != nil {
		var asString string
		if err := json.Unmarshal(raw, &asString); err != nil {
			return 0, fmt.Errorf("%s: not a number", field)
		}
		number = json.Number(strings.TrimSpace(asString))
	}
	value, err := strconv.Atoi(number.String())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return value, nil
}
