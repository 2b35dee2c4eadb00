package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"Omerix_API_Informes/internal/informes/validator"
	"Omerix_API_Informes/internal/models"
	"Omerix_API_Informes/internal/utils"
	"Omerix_API_Informes/pkg/aiclient"
	"Omerix_API_Informes/pkg/cache"
)

// AIInterpreter servicio externo de lenguaje natural
type AIInterpreter interface {
	Interpret(ctx context.Context, req *aiclient.InterpretRequest) (*aiclient.InterpretResponse, error)
}

// AIIntakeService recibe definiciones generadas por IA. Nunca confía en ellas:
// cada candidata, incluso la cacheada, pasa por el mismo validador que la
// entrada de usuario antes de guardarse o ejecutarse.
type AIIntakeService interface {
	Generate(ctx context.Context, actor models.Actor, req *models.GenerarInformeIARequest) (*models.GenerarInformeIAResponse, error)
}

// AIIntakeConfig límites del servicio de IA
type AIIntakeConfig struct {
	RateLimitPerMinute int
	SuggestionTTL      time.Duration
}

type aiIntakeService struct {
	interpreter AIInterpreter
	validator   *validator.Validator
	informes    InformeService
	cache       cache.CacheService
	config      AIIntakeConfig
	logger      *zap.Logger

	mu        sync.Mutex
	limiters  map[string]*tenantLimiter
	lastSweep time.Time
	now       func() time.Time
}

type tenantLimiter struct {
	*rate.Limiter
	lastSeen time.Time
}

// limiterIdle tras un minuto sin uso el cupo de un tenant está completo y su
// limitador puede descartarse sin cambiar el comportamiento
const limiterIdle = time.Minute

const (
	nombreMin      = 3
	nombreMax      = 120
	descripcionMax = 500
)

// NewAIIntakeService crea el adaptador de entrada de IA
func NewAIIntakeService(
	interpreter AIInterpreter,
	v *validator.Validator,
	informes InformeService,
	cacheService cache.CacheService,
	config AIIntakeConfig,
	logger *zap.Logger,
) AIIntakeService {
	if config.RateLimitPerMinute <= 0 {
		config.RateLimitPerMinute = 20
	}
	if cacheService == nil {
		cacheService = cache.NewNoopCacheService()
	}
	return &aiIntakeService{
		interpreter: interpreter,
		validator:   v,
		informes:    informes,
		cache:       cacheService,
		config:      config,
		logger:      logger.With(zap.String("component", "ai_intake_service")),
		limiters:    make(map[string]*tenantLimiter),
		now:         time.Now,
	}
}

func (s *aiIntakeService) limiter(tenant string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= limiterIdle {
		for k, l := range s.limiters {
			if now.Sub(l.lastSeen) >= limiterIdle {
				delete(s.limiters, k)
			}
		}
		s.lastSweep = now
	}

	l, ok := s.limiters[tenant]
	if !ok {
		perMinute := s.config.RateLimitPerMinute
		l = &tenantLimiter{Limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)}
		s.limiters[tenant] = l
	}
	l.lastSeen = now
	return l.Limiter
}

// nombreInforme adapta el nombre propuesto por el intérprete a las reglas de
// InformeRequest; si no sirve se deriva del prompt
func nombreInforme(sugerido, prompt string) string {
	nombre := strings.TrimSpace(sugerido)
	if utf8.RuneCountInString(nombre) < nombreMin {
		nombre = strings.TrimSpace(prompt)
	}
	if utf8.RuneCountInString(nombre) < nombreMin {
		nombre = "Informe generado"
	}
	return utils.Truncate(nombre, nombreMax-3)
}

func suggestionKey(actor models.Actor, req *models.GenerarInformeIARequest) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(req.Prompt))))
	return cache.IAKeys.Build(actor.TenantID.Hex(), string(req.Modulo), hex.EncodeToString(sum[:]))
}

// Generate obtiene una candidata (de caché o del servicio), la valida y
// opcionalmente la guarda y la ejecuta.
func (s *aiIntakeService) Generate(ctx context.Context, actor models.Actor, req *models.GenerarInformeIARequest) (*models.GenerarInformeIAResponse, error) {
	if actor.TenantID.IsZero() {
		return nil, fmt.Errorf("%w: tenant is required", utils.ErrUnauthorized)
	}

	candidate, err := s.candidate(ctx, actor, req)
	if err != nil {
		return nil, err
	}

	def, err := s.validator.ValidateJSON(candidate.Definicion)
	if err != nil {
		s.logger.Info("AI candidate rejected",
			zap.String("tenant_id", actor.TenantID.Hex()),
			zap.String("modulo", string(req.Modulo)),
			zap.Error(err))
		return nil, err
	}
	if def.Modulo != req.Modulo {
		return nil, utils.NewValidationErrors([]utils.ValidationErrorDetail{{
			Field:   "modulo",
			Message: fmt.Sprintf("generated definition targets module %s, expected %s", def.Modulo, req.Modulo),
			Value:   def.Modulo,
		}})
	}

	resp := &models.GenerarInformeIAResponse{
		Definicion:  def.Spec,
		Confianza:   candidate.Confianza,
		Explicacion: candidate.Explicacion,
	}

	if req.Guardar {
		informe, err := s.informes.Create(ctx, actor, &models.InformeRequest{
			Nombre:      nombreInforme(candidate.Nombre, req.Prompt),
			Descripcion: utils.Truncate(strings.TrimSpace(candidate.Explicacion), descripcionMax-3),
			InformeSpec: def.Spec,
		})
		if err != nil {
			return nil, err
		}
		resp.Informe = informe
	}

	if req.Ejecutar {
		result, err := s.informes.ExecuteAdHoc(ctx, actor, def.Spec, 1, 0)
		if err != nil {
			return nil, err
		}
		resp.Resultado = result
	}

	return resp, nil
}

// candidate devuelve la respuesta cruda del servicio; las respuestas se
// cachean sin validar y se vuelven a validar en cada uso
func (s *aiIntakeService) candidate(ctx context.Context, actor models.Actor, req *models.GenerarInformeIARequest) (*aiclient.InterpretResponse, error) {
	key := suggestionKey(actor, req)

	var cached aiclient.InterpretResponse
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		s.logger.Debug("AI suggestion cache hit", zap.String("tenant_id", actor.TenantID.Hex()))
		return &cached, nil
	}

	if !s.limiter(actor.TenantID.Hex()).Allow() {
		return nil, fmt.Errorf("%w: too many AI requests, try again later", utils.ErrRateLimited)
	}

	fields, err := s.informes.Catalog(req.Modulo)
	if err != nil {
		return nil, err
	}
	campos := make([]map[string]interface{}, 0, len(fields))
	for _, f := range fields {
		campos = append(campos, map[string]interface{}{
			"coleccion":  f.Collection,
			"campo":      f.Path,
			"etiqueta":   f.Label,
			"tipo":       f.Type,
			"agregable":  f.Aggregatable,
			"operadores": f.AllowedOperators,
		})
	}

	resp, err := s.interpreter.Interpret(ctx, &aiclient.InterpretRequest{
		TenantID: actor.TenantID.Hex(),
		Modulo:   string(req.Modulo),
		Prompt:   req.Prompt,
		Campos:   campos,
	})
	if err != nil {
		s.logger.Error("AI interpreter failed", zap.Error(err))
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, &utils.TimeoutError{Op: "ai_interpret", Err: err}
		}
		return nil, &utils.ExecutionError{Op: "ai_interpret", Attempts: 1, Err: err}
	}

	if err := s.cache.Set(ctx, key, resp, s.config.SuggestionTTL); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
		s.logger.Warn("Failed to cache AI suggestion", zap.Error(err))
	}
	return resp, nil
}
