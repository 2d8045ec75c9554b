package cmd

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"fraud-trade-lab/internal/config"
	"fraud-trade-lab/internal/domain"
	"fraud-trade-lab/internal/fixtures"
	"fraud-trade-lab/internal/input"
	"fraud-trade-lab/internal/observability"
)

// loadInputs reads the account population and catalog, falling back to the demo fixtures
// for whichever path is empty.
func loadInputs(in config.InputConfig, seed uint64, log logrus.FieldLogger) ([]domain.Account, *domain.Catalog, error) {
	var (
		accounts []domain.Account
		catalog  *domain.Catalog
		err      error
	)

	if in.Accounts != "" {
		if accounts, err = input.LoadAccounts(in.Accounts); err != nil {
			return nil, nil, err
		}
		log.WithFields(logrus.Fields{"path": in.Accounts, "accounts": len(accounts)}).Info("accounts loaded")
	} else {
		accounts = fixtures.Accounts(in.DemoAccounts, seed)
		log.WithField("accounts", len(accounts)).Info("using demo account population")
	}

	if in.Instruments != "" {
		if catalog, err = input.LoadInstruments(in.Instruments); err != nil {
			return nil, nil, err
		}
		log.WithFields(logrus.Fields{"path": in.Instruments, "instruments": catalog.Len()}).Info("instruments loaded")
	} else {
		catalog = fixtures.Catalog()
		log.WithField("instruments", catalog.Len()).Info("using demo instrument catalog")
	}

	return accounts, catalog, nil
}

// startMetricsServer serves /metrics and /health on addr until the returned stop is called.
func startMetricsServer(addr string, m *observability.Metrics, log logrus.FieldLogger) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.WithField("addr", addr).Info("starting metrics server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics server error")
		}
	}()

	return func() { _ = srv.Close() }
}
