package app

import (
	"context"
	"sync"

	"github.com/dispatchly/ghostload/internal/assignment"
	"github.com/dispatchly/ghostload/internal/dispatch"
	"github.com/dispatchly/ghostload/internal/matching"
	"github.com/dispatchly/ghostload/internal/opportunity"
	"github.com/dispatchly/ghostload/internal/scanner"
	"github.com/dispatchly/ghostload/internal/source"
	"github.com/dispatchly/ghostload/internal/storage"
	"github.com/dispatchly/ghostload/pkg/config"
	"github.com/dispatchly/ghostload/pkg/healthprobe"
	"github.com/dispatchly/ghostload/pkg/httpserver"
	"go.uber.org/zap"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	registry      *opportunity.Registry
	feed          *source.Feed // non-nil only in ws source mode
	scanner       *scanner.Scanner
	optimizer     *matching.Optimizer
	workflow      *assignment.Workflow
	dispatcher    *dispatch.Dispatcher
	storage       storage.Storage
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}
