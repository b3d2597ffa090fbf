package main

import (
	"context"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/config"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain/feedback"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/service"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/storage/jsonfile"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/storage/memory"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/storage/postgres"
	"github.com/dmehra2102/prod-golang-projects/medicare/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/medicare/pkg/events"
	"github.com/dmehra2102/prod-golang-projects/medicare/pkg/lock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type stores struct {
	appointments appointment.Repository
	doctors      doctor.Repository
	feedback     feedback.Repository
	users        service.UserRepository
	audit        service.AuditRepository

	closers []func() error
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

// openStores selects the storage driver named by STORAGE_DRIVER.
func openStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*stores, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		seed, err := loadDirectory(ctx, cfg.Storage.DataDir)
		if err != nil {
			return nil, err
		}
		log.Warn("using in-memory storage; data is lost on exit", zap.Int("doctors", len(seed)))
		return &stores{
			appointments: memory.NewAppointmentRepository(),
			doctors:      memory.NewDoctorRepository(seed...),
			feedback:     memory.NewFeedbackRepository(),
			users:        memory.NewUserRepository(),
			audit:        memory.NewAuditRepository(),
		}, nil

	case config.DriverFile:
		st, err := jsonfile.Open(cfg.Storage.DataDir)
		if err != nil {
			return nil, err
		}
		log.Info("using file storage", zap.String("dir", st.Dir()))
		return &stores{
			appointments: st.Appointments(),
			doctors:      st.Doctors(),
			feedback:     st.Feedback(),
			users:        st.Users(),
			audit:        st.Audit(),
		}, nil

	case config.DriverPostgres:
		db, err := database.Connect(cfg.Database, log)
		if err != nil {
			return nil, err
		}
		st := postgres.New(db)
		return &stores{
			appointments: st.Appointments(),
			doctors:      st.Doctors(),
			feedback:     st.Feedback(),
			users:        st.Users(),
			audit:        st.Audit(),
			closers:      []func() error{st.Close},
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func loadDirectory(ctx context.Context, dir string) ([]*doctor.Doctor, error) {
	src, err := jsonfile.Open(dir)
	if err != nil {
		return nil, err
	}
	return src.Doctors().List(ctx, doctor.SearchQuery{})
}

type serverDeps struct {
	stores    *stores
	locker    lock.Locker
	publisher events.Publisher
	redis     *redis.Client
}

func (d *serverDeps) Close() {
	if d.publisher != nil {
		_ = d.publisher.Close()
	}
	if d.redis != nil {
		_ = d.redis.Close()
	}
	d.stores.Close()
}

// openDeps wires storage, the slot locker and the event publisher.
func openDeps(ctx context.Context, cfg *config.Config, log *zap.Logger) (*serverDeps, error) {
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	deps := &serverDeps{stores: st, locker: lock.NewLocal(), publisher: events.Noop{}}

	if cfg.Redis.Enabled {
		client, err := database.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.redis = client
		deps.locker = lock.NewRedis(client, cfg.Lock.TTL)
		log.Info("using redis slot locks", zap.String("addr", cfg.Redis.Addr))
	}

	switch cfg.Events.Sink {
	case config.SinkRedis:
		deps.publisher = events.NewBreaker(
			events.NewRedis(deps.redis, cfg.Events.RedisChannel),
			"redis-events", cfg.Events.BreakerFailures, cfg.Events.BreakerCooldown, log,
		)
	case config.SinkRabbitMQ:
		rmq, err := events.NewRabbitMQ(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.publisher = events.NewBreaker(rmq, "rabbitmq-events",
			cfg.Events.BreakerFailures, cfg.Events.BreakerCooldown, log)
	}

	return deps, nil
}
