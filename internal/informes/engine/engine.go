// Package engine ejecuta planes compilados contra el origen de datos de un tenant.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"Omerix_API_Informes/internal/datasource"
	"Omerix_API_Informes/internal/informes/compiler"
	"Omerix_API_Informes/internal/models"
	"Omerix_API_Informes/internal/utils"
)

// Engine no guarda estado entre ejecuciones; una instancia sirve a todos los tenants
type Engine struct {
	retry   RetryPolicy
	timeout time.Duration
	logger  *zap.Logger
}

// Option configura el motor
type Option func(*Engine)

// WithRetryPolicy sustituye la política de reintentos
func WithRetryPolicy(p RetryPolicy) Option {
	return func(e *Engine) {
		if p.MaxAttempts < 1 {
			p.MaxAttempts = 1
		}
		e.retry = p
	}
}

// WithTimeout plazo máximo de una ejecución completa; 0 desactiva el límite
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// New crea el motor de ejecución
func New(logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		retry:  DefaultRetryPolicy(),
		logger: logger.With(zap.String("component", "informes_engine")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute ejecuta en paralelo la página de filas, los totales y el recuento.
// Los totales y el recuento no dependen de la página solicitada.
func (e *Engine) Execute(ctx context.Context, src datasource.Source, plan *compiler.Plan) (*models.ResultadoInforme, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	log := e.logger.With(
		zap.String("execution_id", uuid.NewString()),
		zap.String("collection", plan.Coleccion),
		zap.Int("page", plan.Page),
		zap.Int("limit", plan.Limit))

	var (
		rows      []map[string]interface{}
		totalsRow []map[string]interface{}
		total     int64
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return e.withRetry(gctx, log, "rows", func(ctx context.Context) error {
			var err error
			rows, err = src.Aggregate(ctx, plan.Coleccion, plan.Rows)
			return err
		})
	})

	if plan.Totals != nil {
		g.Go(func() error {
			return e.withRetry(gctx, log, "totals", func(ctx context.Context) error {
				var err error
				totalsRow, err = src.Aggregate(ctx, plan.Coleccion, plan.Totals)
				return err
			})
		})
	}

	g.Go(func() error {
		return e.withRetry(gctx, log, "count", func(ctx context.Context) error {
			var err error
			total, err = src.Count(ctx, plan.Coleccion, plan.Count)
			return err
		})
	})

	if err := g.Wait(); err != nil {
		log.Error("Report execution failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return nil, err
	}

	if rows == nil {
		rows = []map[string]interface{}{}
	}

	result := &models.ResultadoInforme{
		Datos:      rows,
		Totales:    totals(plan, totalsRow),
		Paginacion: pagination(plan, total),
		Columnas:   plan.Columnas,
	}

	log.Debug("Report executed",
		zap.Int("rows", len(rows)),
		zap.Int64("total", total),
		zap.Duration("duration", time.Since(start)))

	return result, nil
}

// Rows ejecuta solo la página de filas del plan, sin totales ni recuento.
// La exportación lo usa a partir de la segunda página.
func (e *Engine) Rows(ctx context.Context, src datasource.Source, plan *compiler.Plan) ([]map[string]interface{}, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	log := e.logger.With(
		zap.String("execution_id", uuid.NewString()),
		zap.String("collection", plan.Coleccion),
		zap.Int("page", plan.Page),
		zap.Int("limit", plan.Limit))

	var rows []map[string]interface{}
	err := e.withRetry(ctx, log, "rows", func(ctx context.Context) error {
		var err error
		rows, err = src.Aggregate(ctx, plan.Coleccion, plan.Rows)
		return err
	})
	if err != nil {
		log.Error("Report page failed", zap.Error(err))
		return nil, err
	}
	if rows == nil {
		rows = []map[string]interface{}{}
	}
	return rows, nil
}

// withRetry reintenta solo errores marcados como transitorios. La cancelación
// o el vencimiento del plazo abortan sin reintentar.
func (e *Engine) withRetry(ctx context.Context, log *zap.Logger, op string, fn func(context.Context) error) error {
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				log.Info("Data source call recovered", zap.String("op", op), zap.Int("attempts", attempt))
			}
			return nil
		}

		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			cause := ctx.Err()
			if cause == nil {
				cause = err
			}
			return &utils.TimeoutError{Op: op, Err: cause}
		}

		if !datasource.IsTransient(err) || attempt >= e.retry.MaxAttempts {
			return &utils.ExecutionError{Op: op, Attempts: attempt, Err: err}
		}

		delay := e.retry.Delay(attempt - 1)
		log.Warn("Transient data source error, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return &utils.TimeoutError{Op: op, Err: ctx.Err()}
		case <-timer.C:
		}
	}
}

// totals parte de los valores identidad y los sustituye por la fila calculada
func totals(plan *compiler.Plan, row []map[string]interface{}) map[string]interface{} {
	out := compiler.IdentityTotals(plan.Accumulators)
	if len(row) == 0 {
		return out
	}
	for _, acc := range plan.Accumulators {
		if v, ok := row[0][acc.Key]; ok && v != nil {
			out[acc.Key] = v
		}
	}
	return out
}

func pagination(plan *compiler.Plan, total int64) models.Paginacion {
	pages := 0
	if total > 0 {
		pages = int((total + int64(plan.Limit) - 1) / int64(plan.Limit))
	}
	return models.Paginacion{
		Page:       plan.Page,
		Limit:      plan.Limit,
		Total:      total,
		TotalPages: pages,
	}
}
