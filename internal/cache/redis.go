package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/littl3hero/studentio-backend/internal/logger"
	"github.com/littl3hero/studentio-backend/internal/types"
	"github.com/littl3hero/studentio-backend/internal/utils"
)

const preparedExamKeyPrefix = "prepared_exam:"

type redisPreparedExams struct {
	rdb *redis.Client
	ttl time.Duration
	log *logger.Logger
}

func newRedisPreparedExams(addr string, log *logger.Logger) PreparedExams {
	ttlSeconds := utils.GetEnvAsInt("PREPARED_EXAM_TTL_SECONDS", 3600, log)
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: utils.GetEnv("REDIS_PASSWORD", "", log),
		DB:       utils.GetEnvAsInt("REDIS_DB", 0, log),
	})
	return &redisPreparedExams{
		rdb: rdb,
		ttl: time.Duration(ttlSeconds) * time.Second,
		log: log.With("service", "PreparedExamsRedis"),
	}
}

func (c *redisPreparedExams) Put(ctx context.Context, studentID string, exam types.Exam) error {
	raw, err := json.Marshal(exam)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, preparedExamKeyPrefix+studentID, raw, c.ttl).Err()
}

func (c *redisPreparedExams) Take(ctx context.Context, studentID string) (types.Exam, bool) {
	var exam types.Exam
	raw, err := c.rdb.GetDel(ctx, preparedExamKeyPrefix+studentID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("Prepared exam pop failed", "student_id", studentID, "error", err)
		}
		return exam, false
	}
	if err := json.Unmarshal(raw, &exam); err != nil {
		c.log.Warn("Prepared exam payload not decodable", "student_id", studentID, "error", err)
		return exam, false
	}
	return exam, true
}
