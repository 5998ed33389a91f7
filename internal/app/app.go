package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-graph/internal/config"
	"github.com/samvad-hq/samvad-graph/internal/domain"
	"github.com/samvad-hq/samvad-graph/internal/logger"
	"github.com/samvad-hq/samvad-graph/internal/runner"
	"github.com/samvad-hq/samvad-graph/internal/storage"
	"github.com/samvad-hq/samvad-graph/pkg/graph"
	"github.com/samvad-hq/samvad-graph/pkg/httpclient"
	"github.com/samvad-hq/samvad-graph/pkg/jobs"
	"github.com/samvad-hq/samvad-graph/pkg/notifiers"
)

// App wires the Graph client with the publish ledger and downstream notifiers.
type App struct {
	cfg    *config.Config
	client *graph.Client
	ledger storage.Ledger
	fanout *notifiers.Fanout
	runner *runner.Service
	log    logger.Logger
	now    func() time.Time
}

// New builds an App from configuration.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)

	transport := httpclient.NewTransport(httpclient.Options{
		Timeout:     cfg.GraphTimeout,
		AccessToken: cfg.GraphAccessToken,
		UserAgent:   cfg.AppName,
	})
	client, err := graph.NewClient(transport, graph.JSONCodec{}, graph.WithBaseURL(cfg.GraphAPIURL))
	if err != nil {
		return nil, fmt.Errorf("init graph client: %w", err)
	}
	log.InfoObj("graph client initialized", "graph_config", map[string]any{
		"base_url":        client.BaseURL(),
		"timeout_seconds": int(cfg.GraphTimeout.Seconds()),
		"has_token":       cfg.GraphAccessToken != "",
	})

	ledger, err := storage.NewLedger(cfg.StorageType, cfg.BBoltPath, storage.Options{
		EntryTTL:        cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"entry_ttl_seconds":        int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	fanout, err := buildFanout(ctx, cfg, log)
	if err != nil {
		ledger.Close()
		return nil, err
	}

	a := NewWithDeps(client, ledger, fanout, log)
	a.cfg = cfg
	return a, nil
}

// NewWithDeps assembles an App from already built collaborators.
func NewWithDeps(client *graph.Client, ledger storage.Ledger, fanout *notifiers.Fanout, log logger.Logger) *App {
	if ledger == nil {
		ledger, _ = storage.NewLedger("none", "", storage.Options{})
	}
	a := &App{
		client: client,
		ledger: ledger,
		fanout: fanout,
		log:    logger.Ensure(log),
		now:    time.Now,
	}
	a.runner = runner.NewService(a, a.log)
	return a
}

func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*notifiers.Fanout, error) {
	if strings.TrimSpace(cfg.NotifiersFile) == "" {
		return notifiers.NewFanout(nil), nil
	}

	reg, err := notifiers.LoadRegistry(cfg.NotifiersFile)
	if err != nil {
		return nil, fmt.Errorf("load notifiers registry: %w", err)
	}
	enabled := reg.Enabled()
	built, err := notifiers.DefaultRegistry().BuildAll(ctx, enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build notifiers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, n := range enabled {
		summaries = append(summaries, map[string]string{"id": n.ID, "type": n.Type})
	}
	log.InfoObj("notifiers registry loaded", "notifiers_meta", map[string]any{
		"count":     len(summaries),
		"notifiers": summaries,
	})
	return notifiers.NewFanout(built), nil
}

// Close releases the ledger and notifiers.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	return errors.Join(a.ledger.Close(), a.fanout.Close())
}

// FetchObject returns objectID as a generic JSON object.
func (a *App) FetchObject(ctx context.Context, objectID string, fields []string, params map[string]string) (domain.Operation, error) {
	obj, err := graph.ObjectWithParams[map[string]any](ctx, a.client, objectID, mergeFields(params, fields))
	if err != nil {
		return domain.Operation{}, err
	}
	return a.operation(domain.ActionFetchObject, objectID, "", "", obj), nil
}

// FetchConnections lists a connection of objectID as generic JSON objects.
func (a *App) FetchConnections(ctx context.Context, objectID, connection string, fields []string, params map[string]string) (domain.Operation, error) {
	var (
		items []map[string]any
		err   error
	)
	if len(params) == 0 {
		items, err = graph.Connections[map[string]any](ctx, a.client, objectID, connection, fields...)
	} else {
		items, err = graph.ConnectionsWithParams[map[string]any](ctx, a.client, objectID, connection, mergeFields(params, fields))
	}
	if err != nil {
		return domain.Operation{}, err
	}
	return a.operation(domain.ActionFetchConnections, objectID, connection, "", items), nil
}

// FetchImage always fails with graph.ErrUnsupported.
func (a *App) FetchImage(ctx context.Context, objectID, connection string, imageType graph.ImageType) ([]byte, error) {
	return a.client.FetchImage(ctx, objectID, connection, imageType)
}

// Publish creates an object on connection, records it in the ledger and notifies sinks.
func (a *App) Publish(ctx context.Context, objectID, connection string, data map[string]any) (domain.Operation, error) {
	id, err := a.client.Publish(ctx, objectID, connection, data)
	if err != nil {
		return domain.Operation{}, err
	}

	op := a.operation(domain.ActionPublish, objectID, connection, id, nil)
	if err := a.ledger.Record(op); err != nil {
		a.log.ErrorObj("ledger record failed", "ledger_error", map[string]any{
			"result_id": id,
			"error":     err.Error(),
		})
	}
	a.notify(ctx, op)
	return op, nil
}

// Post sends data to connection without expecting an object id back.
func (a *App) Post(ctx context.Context, objectID, connection string, data map[string]string) (domain.Operation, error) {
	if err := a.client.Post(ctx, objectID, connection, data); err != nil {
		return domain.Operation{}, err
	}
	op := a.operation(domain.ActionPost, objectID, connection, "", nil)
	a.notify(ctx, op)
	return op, nil
}

// Delete removes objectID, or its connection when one is given, and drops it from the ledger.
func (a *App) Delete(ctx context.Context, objectID, connection string) (domain.Operation, error) {
	var err error
	if connection == "" {
		err = a.client.Delete(ctx, objectID)
	} else {
		err = a.client.DeleteConnection(ctx, objectID, connection)
	}
	if err != nil {
		return domain.Operation{}, err
	}

	if connection == "" {
		if err := a.ledger.Forget(objectID); err != nil {
			a.log.ErrorObj("ledger forget failed", "ledger_error", map[string]any{
				"object_id": objectID,
				"error":     err.Error(),
			})
		}
	}
	op := a.operation(domain.ActionDelete, objectID, connection, "", nil)
	a.notify(ctx, op)
	return op, nil
}

// Published lists the objects recorded in the ledger.
func (a *App) Published() ([]domain.Operation, error) {
	return a.ledger.List()
}

// LookupPublished returns the ledger entry for the object id the Graph API assigned on publish.
func (a *App) LookupPublished(id string) (domain.Operation, bool, error) {
	return a.ledger.Lookup(strings.TrimSpace(id))
}

// RunJobs loads the jobs file at path and executes its enabled jobs.
func (a *App) RunJobs(ctx context.Context, path string) ([]domain.Operation, error) {
	reg, err := a.loadJobs(path)
	if err != nil {
		return nil, err
	}
	return a.runner.Run(ctx, reg.Enabled())
}

// RunJob executes the single job id from the jobs file at path, even when it is disabled.
func (a *App) RunJob(ctx context.Context, path, id string) (domain.Operation, error) {
	reg, err := a.loadJobs(path)
	if err != nil {
		return domain.Operation{}, err
	}
	job, ok := reg.ByID(id)
	if !ok {
		return domain.Operation{}, fmt.Errorf("job %q not found", id)
	}
	ops, err := a.runner.Run(ctx, []jobs.Job{job})
	if err != nil {
		return domain.Operation{}, err
	}
	return ops[0], nil
}

func (a *App) loadJobs(path string) (*jobs.Registry, error) {
	if strings.TrimSpace(path) == "" && a.cfg != nil {
		path = a.cfg.JobsFile
	}
	reg, err := jobs.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	return reg, nil
}

// Execute dispatches job to the matching operation; it implements runner.Operator.
func (a *App) Execute(ctx context.Context, job jobs.Job) (domain.Operation, error) {
	var (
		op  domain.Operation
		err error
	)
	switch job.Action {
	case domain.ActionFetchObject:
		op, err = a.FetchObject(ctx, job.ObjectID, job.Fields, job.Params)
	case domain.ActionFetchConnections:
		op, err = a.FetchConnections(ctx, job.ObjectID, job.Connection, job.Fields, job.Params)
	case domain.ActionPublish:
		op, err = a.Publish(ctx, job.ObjectID, job.Connection, job.Data)
	case domain.ActionPost:
		op, err = a.Post(ctx, job.ObjectID, job.Connection, job.StringData())
	case domain.ActionDelete:
		op, err = a.Delete(ctx, job.ObjectID, job.Connection)
	default:
		return domain.Operation{}, fmt.Errorf("unknown action %q", job.Action)
	}
	if err != nil {
		return domain.Operation{}, err
	}
	op.JobID = job.ID
	return op, nil
}

func (a *App) operation(action, objectID, connection, resultID string, result any) domain.Operation {
	return domain.Operation{
		Action:     action,
		ObjectID:   objectID,
		Connection: connection,
		ResultID:   resultID,
		Result:     result,
		At:         a.now().UTC(),
	}
}

func (a *App) notify(ctx context.Context, op domain.Operation) {
	if !op.Mutating() || a.fanout.Size() == 0 {
		return
	}
	delivered, err := a.fanout.Notify(ctx, notifiers.NewEvent(op))
	if err != nil {
		a.log.WarnObj("notification delivery incomplete", "notify_error", map[string]any{
			"action":    op.Action,
			"object_id": op.ObjectID,
			"delivered": delivered,
			"error":     err.Error(),
		})
	}
}

// mergeFields copies params and adds fields comma-joined under "fields".
func mergeFields(params map[string]string, fields []string) map[string]string {
	if len(fields) == 0 {
		return params
	}
	out := make(map[string]string, len(params)+1)
	for k, v := range params {
		out[k] = v
	}
	out["fields"] = strings.Join(fields, ",")
	return out
}
