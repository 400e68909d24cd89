package extractor

import (
	"context"

	"clinic_booking_bot/pkg/logger"
)

// Chain пробует основной извлекатель и при ошибке переходит на запасной
type Chain struct {
	primary  Extractor
	fallback Extractor
	logger   *logger.Logger
}

// NewChain создает цепочку. Если fallback nil, используется только primary.
func NewChain(primary, fallback Extractor, log *logger.Logger) *Chain {
	return &Chain{
		primary:  primary,
		fallback: fallback,
		logger:   log,
	}
}

// Extract реализует Extractor
func (c *Chain) Extract(ctx context.Context, req Request) (Result, error) {
	res, err := c.primary.Extract(ctx, req)
	if err == nil {
		return res, nil
	}

	c.logger.Warn("Primary extractor failed, attempting fallback",
		logger.String("kind", string(req.Kind())),
		logger.Error(err),
		logger.Bool("fallback_available", c.fallback != nil),
	)

	if c.fallback == nil {
		return Result{}, err
	}

	res, fbErr := c.fallback.Extract(ctx, req)
	if fbErr != nil {
		c.logger.Error("Fallback extractor also failed",
			logger.String("primary_error", err.Error()),
			logger.String("fallback_error", fbErr.Error()),
		)
		return Result{}, fbErr
	}
	return res, nil
}
