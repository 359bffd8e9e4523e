package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Astemirdum/library-lending/library/config"
	"github.com/Astemirdum/library-lending/library/internal/clock"
	"github.com/Astemirdum/library-lending/library/internal/fee"
	"github.com/Astemirdum/library-lending/library/internal/handler"
	"github.com/Astemirdum/library-lending/library/internal/ledger"
	"github.com/Astemirdum/library-lending/library/internal/membership"
	"github.com/Astemirdum/library-lending/library/internal/notify"
	"github.com/Astemirdum/library-lending/library/internal/repository"
	"github.com/Astemirdum/library-lending/library/internal/reservation"
	"github.com/Astemirdum/library-lending/library/internal/review"
	"github.com/Astemirdum/library-lending/library/internal/server"
	"github.com/Astemirdum/library-lending/library/internal/service"
	"github.com/Astemirdum/library-lending/pkg/circuit_breaker"
	"github.com/Astemirdum/library-lending/pkg/kafka"
	"github.com/Astemirdum/library-lending/pkg/logger"
)

const (
	breakerRecords    = 10
	breakerTimeout    = 30 * time.Second
	breakerPercentile = 0.5
	breakerRecovery   = 3

	shutdownTimeout = 5 * time.Second
)

func Run(cfg config.Config) error {
	log := logger.NewLogger(cfg.Log, "library")
	clk := clock.System{}

	plans, err := membership.NewRegistry(log, cfg.Lending.Plans...)
	if err != nil {
		return errors.Wrap(err, "membership plans")
	}
	patrons := repository.NewRepository(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	var sink ledger.EventSink = notify.NewLogSink(log)
	if cfg.Kafka.Enabled() {
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			return errors.Wrap(err, "kafka.NewProducer")
		}
		defer func() {
			if err := producer.Close(); err != nil {
				log.Warn("producer.Close", zap.Error(err))
			}
		}()
		cb := circuit_breaker.New(breakerRecords, breakerTimeout, breakerPercentile, breakerRecovery)
		sink = notify.NewPublisher(producer, kafka.LendingTopic, cb, log)

		group, err := kafka.NewConsumer(cfg.Kafka, kafka.NotificationConsumerGroup)
		if err != nil {
			return errors.Wrap(err, "kafka.NewConsumer")
		}
		consumer := handler.NewConsumer(notify.NewDispatcher(log).Notify, log)
		g.Go(func() error {
			return kafka.Consume(ctx, group, consumer, kafka.LendingTopic)
		})
		g.Go(func() error {
			<-ctx.Done()
			return group.Close()
		})
	}

	lg := ledger.New(patrons, plans, reservation.New(clk, log), clk, log,
		ledger.WithLoanPeriod(cfg.Lending.LoanPeriod),
		ledger.WithEventSink(sink),
	)
	fees := fee.NewCalculator(plans, log, fee.WithPerDayRate(cfg.Lending.PerDayRate))
	svc := service.NewService(lg, plans, patrons, fees, review.NewStore(clk, log), clk, log)

	h := handler.New(svc, log)
	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	g.Go(srv.Run)
	g.Go(func() error {
		<-ctx.Done()
		log.Debug("Graceful shutdown")

		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Stop(closeCtx)
	})

	err = g.Wait()
	log.Info("Graceful shutdown finished")
	return err
}
