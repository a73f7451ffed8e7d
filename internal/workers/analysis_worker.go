package workers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/mockinterview/internal/services"
)

const (
	DefaultAnalysisStream = "analysis:stream"
	DefaultAnalysisGroup  = "analysis-workers"
)

// AnalysisQueue publishes analysis jobs to a Redis stream.
type AnalysisQueue struct {
	Redis  *redis.Client
	Stream string
}

func NewAnalysisQueue(rdb *redis.Client) *AnalysisQueue {
	return &AnalysisQueue{Redis: rdb, Stream: DefaultAnalysisStream}
}

func (q *AnalysisQueue) Enqueue(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return errors.New("session id is required")
	}
	return q.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: q.Stream,
		MaxLen: 10000,
		Approx: true,
		Values: map[string]any{
			"session_id": sessionID,
			"ts_unix":    strconv.FormatInt(time.Now().UTC().Unix(), 10),
		},
	}).Err()
}

// AnalysisWorkerPool consumes the analysis stream and generates results ahead of the first
// results request.
type AnalysisWorkerPool struct {
	Redis      *redis.Client
	Results    services.ResultsService
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string

	wg sync.WaitGroup
}

func (p *AnalysisWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Results == nil {
		return errors.New("AnalysisWorkerPool missing dependency: Redis/Results must be set")
	}
	if p.Stream == "" {
		p.Stream = DefaultAnalysisStream
	}
	if p.Group == "" {
		p.Group = DefaultAnalysisGroup
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 2
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	err := p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.runConsumer(ctx, consumer)
		}()
	}
	return nil
}

// Wait blocks until every consumer has returned after ctx is cancelled.
func (p *AnalysisWorkerPool) Wait() { p.wg.Wait() }

func (p *AnalysisWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    5,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			p.Logger.WithError(err).WithField("consumer", consumer).Warn("analysis stream read failed")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *AnalysisWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	sessionID, _ := msg.Values["session_id"].(string)
	if sessionID == "" {
		return
	}

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":   msg.ID,
		"session_id": sessionID,
	})

	start := time.Now()
	if err := p.Results.Generate(ctx, sessionID); err != nil {
		log.WithError(err).Error("background analysis failed")
		return
	}
	log.WithField("duration_ms", time.Since(start).Milliseconds()).Info("background analysis done")
}
