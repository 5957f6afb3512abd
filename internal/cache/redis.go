// Package cache is an optional Redis layer for the schedule query. Misses
// and Redis failures fall back to the store; bookings stay correct with the
// cache gone entirely.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"vaccine-reservation-api/internal/scheduling"
)

const keyPrefix = "schedule:"

type Schedules struct {
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger
}

func NewSchedules(rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *Schedules {
	return &Schedules{rdb: rdb, ttl: ttl, log: log}
}

func (c *Schedules) Schedule(ctx context.Context, date time.Time) (*scheduling.Schedule, bool) {
	raw, err := c.rdb.Get(ctx, keyPrefix+scheduling.FormatDate(date)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.log.Warn().Err(err).Msg("schedule cache read failed")
		return nil, false
	}
	var s scheduling.Schedule
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false
	}
	return &s, true
}

func (c *Schedules) StoreSchedule(ctx context.Context, date time.Time, s *scheduling.Schedule) {
	raw, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, keyPrefix+scheduling.FormatDate(date), raw, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Msg("schedule cache write failed")
	}
}

// Invalidate drops every cached schedule. Vaccine counts appear in all of
// them, so one write anywhere stales the lot.
func (c *Schedules) Invalidate(ctx context.Context) {
	iter := c.rdb.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.log.Warn().Err(err).Msg("schedule cache scan failed")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn().Err(err).Msg("schedule cache invalidation failed")
	}
}

var _ scheduling.ScheduleCache = (*Schedules)(nil)
