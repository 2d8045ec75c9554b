package cmd

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"fraud-trade-lab/internal/config"
	"fraud-trade-lab/internal/sink"
	"fraud-trade-lab/internal/storage"
	chstore "fraud-trade-lab/internal/storage/clickhouse"
	"fraud-trade-lab/internal/storage/memory"
	"fraud-trade-lab/internal/storage/migrations"
	pgstore "fraud-trade-lab/internal/storage/postgres"
	"fraud-trade-lab/internal/storage/sqlite"
)

// buildSink opens every configured sink. On error, sinks opened so far are closed.
func buildSink(ctx context.Context, out config.OutputConfig, log logrus.FieldLogger) (sink.Sink, error) {
	var sinks sink.Multi
	for _, name := range out.Sinks {
		s, err := openSink(ctx, name, out)
		if err != nil {
			_ = sinks.Close()
			return nil, fmt.Errorf("open %s sink: %w", name, err)
		}
		log.WithField("sink", name).Debug("sink opened")
		sinks = append(sinks, s)
	}
	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return sinks, nil
}

func openSink(ctx context.Context, name string, out config.OutputConfig) (sink.Sink, error) {
	switch name {
	case config.SinkJSONL:
		return sink.NewJSONLSink(out.Dir)

	case config.SinkMemory:
		return sink.NewStoreSink(memory.NewTradeStore(), memory.NewHoldingStore(), out.StoreBatchSize, nil), nil

	case config.SinkKafka:
		return sink.NewKafkaSink(sink.KafkaConfig{
			Brokers:       out.KafkaBrokers,
			TradesTopic:   out.KafkaTradesTopic,
			HoldingsTopic: out.KafkaHoldingsTopic,
		})
	}

	trades, holdings, closer, err := openStores(ctx, name, out)
	if err != nil {
		return nil, err
	}
	return sink.NewStoreSink(trades, holdings, out.StoreBatchSize, closer), nil
}

// openStores connects to a database backend, applying its schema first.
func openStores(ctx context.Context, name string, out config.OutputConfig) (storage.TradeStore, storage.HoldingStore, func() error, error) {
	switch name {
	case config.SinkPostgres:
		pool, err := pgstore.NewPool(ctx, out.PostgresDSN, out.PostgresConns)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		closer := func() error {
			pool.Close()
			return nil
		}
		return pgstore.NewTradeStore(pool), pgstore.NewHoldingStore(pool), closer, nil

	case config.SinkClickhouse:
		conn, err := migrations.RunClickhouseMigrations(ctx, out.ClickhouseDSN)
		if err != nil {
			return nil, nil, nil, err
		}
		return chstore.NewTradeStore(conn), chstore.NewHoldingStore(conn), conn.Close, nil

	case config.SinkSQLite:
		db, err := sqlite.Open(out.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		return sqlite.NewTradeStore(db), sqlite.NewHoldingStore(db), db.Close, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown store backend %q", name)
}
