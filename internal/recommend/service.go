package recommend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"farmfeed/internal/auth"
	"farmfeed/internal/cache"
	"farmfeed/internal/models"
	"farmfeed/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// PredictionTTL is how long identical conditions reuse a cached prediction.
const PredictionTTL = 10 * time.Minute

// Predictor produces a crop prediction for conditions.
type Predictor interface {
	Predict(ctx context.Context, cond Conditions) (Prediction, error)
}

type Service struct {
	predictor Predictor
	history   *History
	now       func() time.Time
}

func NewService(predictor Predictor, history *History) *Service {
	return &Service{
		predictor: predictor,
		history:   history,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// predictionKey identifies conditions rounded to two decimals.
func predictionKey(c Conditions) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%.2f|%.2f|%.2f|%.2f|%.2f|%.2f|%.2f",
		c.Temperature, c.Humidity, c.Rainfall, c.SoilPH, c.Nitrogen, c.Phosphorus, c.Potassium))
	return "prediction:" + hex.EncodeToString(sum[:])
}

// Recommend predicts a crop for cond and records it in the user's history.
// A history write failure is logged; the prediction is still returned.
func (s *Service) Recommend(ctx context.Context, user auth.Principal, cond Conditions) (entry Entry, err error) {
	span, ctx := observability.NewSpan(ctx, "recommend.Recommend")
	defer func() { span.End(err) }()

	if user.UserID == "" {
		return Entry{}, models.NewUnauthorizedError("Authentication required")
	}
	if err := cond.Validate(); err != nil {
		return Entry{}, err
	}

	var pred Prediction
	cached, err := cache.Aside(ctx, predictionKey(cond), &pred, PredictionTTL, func() error {
		p, err := s.predictor.Predict(ctx, cond)
		if err != nil {
			return err
		}
		pred = p
		return nil
	})
	switch {
	case err != nil:
		observability.PredictionsTotal.WithLabelValues("error").Inc()
		return Entry{}, models.NewUpstreamError("Crop prediction service", err)
	case cached:
		observability.PredictionsTotal.WithLabelValues("cached").Inc()
	default:
		observability.PredictionsTotal.WithLabelValues("ok").Inc()
	}
	span.SetAttributes(attribute.String("prediction.crop", pred.Crop), attribute.Bool("prediction.cached", cached))

	entry = Entry{Conditions: cond, Prediction: pred, At: s.now()}
	if err := s.history.Record(ctx, user.UserID, entry); err != nil {
		observability.Logger.WarnContext(ctx, "failed to record recommendation history", "error", err)
	}
	return entry, nil
}

// History returns the user's past recommendations, newest first.
func (s *Service) History(ctx context.Context, user auth.Principal) ([]Entry, error) {
	if user.UserID == "" {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	entries, err := s.history.List(ctx, user.UserID)
	if err != nil {
		return nil, models.NewStorageError(err)
	}
	return entries, nil
}
