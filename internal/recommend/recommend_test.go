package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"farmfeed/internal/auth"
	"farmfeed/internal/cache"
	"farmfeed/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleConditions = Conditions{
	Temperature: 26.5, Humidity: 80, Rainfall: 210, SoilPH: 6.4,
	Nitrogen: 90, Phosphorus: 42, Potassium: 43,
}

func predictionServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var got Conditions
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, sampleConditions, got)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestClient_Predict(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		srv, _ := predictionServer(t, http.StatusOK, `{"crop":"rice","confidence":0.93}`)
		pred, err := NewClient(srv.URL, time.Second).Predict(context.Background(), sampleConditions)
		require.NoError(t, err)
		assert.Equal(t, Prediction{Crop: "rice", Confidence: 0.93}, pred)
	})

	t.Run("non-2xx", func(t *testing.T) {
		t.Parallel()
		srv, hits := predictionServer(t, http.StatusServiceUnavailable, `model loading`)
		_, err := NewClient(srv.URL, time.Second).Predict(context.Background(), sampleConditions)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
		assert.Equal(t, int32(1), hits.Load(), "no retry")
	})

	t.Run("empty crop", func(t *testing.T) {
		t.Parallel()
		srv, _ := predictionServer(t, http.StatusOK, `{"confidence":0.1}`)
		_, err := NewClient(srv.URL, time.Second).Predict(context.Background(), sampleConditions)
		assert.Error(t, err)
	})

	t.Run("not configured", func(t *testing.T) {
		t.Parallel()
		_, err := NewClient("", time.Second).Predict(context.Background(), sampleConditions)
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		t.Cleanup(srv.Close)
		t.Cleanup(func() { close(release) })

		_, err := NewClient(srv.URL, 50*time.Millisecond).Predict(context.Background(), sampleConditions)
		assert.Error(t, err)
	})
}

func TestConditions_Validate(t *testing.T) {
	t.Parallel()
	assert.NoError(t, sampleConditions.Validate())

	bad := []func(*Conditions){
		func(c *Conditions) { c.Humidity = 101 },
		func(c *Conditions) { c.SoilPH = 15 },
		func(c *Conditions) { c.Rainfall = -1 },
		func(c *Conditions) { c.Potassium = -3 },
		func(c *Conditions) { c.Temperature = 90 },
	}
	for _, mutate := range bad {
		c := sampleConditions
		mutate(&c)
		assert.True(t, models.IsCode(c.Validate(), models.CodeValidation), "%+v", c)
	}
}

func TestHistory_LocalFallback(t *testing.T) {
	t.Parallel()
	h := NewHistory(nil, 2)
	ctx := context.Background()

	for _, crop := range []string{"maize", "rice", "millet"} {
		require.NoError(t, h.Record(ctx, "u1", Entry{Prediction: Prediction{Crop: crop}}))
	}
	entries, err := h.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "millet", entries[0].Prediction.Crop)
	assert.Equal(t, "rice", entries[1].Prediction.Crop)

	empty, err := h.List(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestHistory_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h := NewHistory(rdb, 2)
	ctx := context.Background()
	for _, crop := range []string{"maize", "rice", "millet"} {
		require.NoError(t, h.Record(ctx, "u1", Entry{Prediction: Prediction{Crop: crop}}))
	}

	list, err := mr.List("history:u1")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = mr.Lpush("history:u1", "{not json")
	require.NoError(t, err)

	entries, err := h.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "millet", entries[0].Prediction.Crop)
	assert.Equal(t, "rice", entries[1].Prediction.Crop)
}

type predictorFunc func(context.Context, Conditions) (Prediction, error)

func (f predictorFunc) Predict(ctx context.Context, c Conditions) (Prediction, error) {
	return f(ctx, c)
}

func TestService_Recommend(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NotNil(t, cache.InitRedis(mr.Addr()))
	t.Cleanup(func() { _ = cache.Close() })

	calls := 0
	svc := NewService(predictorFunc(func(context.Context, Conditions) (Prediction, error) {
		calls++
		return Prediction{Crop: "jute", Confidence: 0.8}, nil
	}), NewHistory(nil, 5))
	user := auth.Principal{UserID: "u1", Name: "Amina"}
	ctx := context.Background()

	entry, err := svc.Recommend(ctx, user, sampleConditions)
	require.NoError(t, err)
	assert.Equal(t, "jute", entry.Prediction.Crop)
	assert.Equal(t, sampleConditions, entry.Conditions)

	_, err = svc.Recommend(ctx, user, sampleConditions)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "identical conditions are served from cache")
	assert.True(t, mr.Exists(predictionKey(sampleConditions)))

	history, err := svc.History(ctx, user)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestService_Recommend_Errors(t *testing.T) {
	cache.SetClient(nil)
	ctx := context.Background()
	user := auth.Principal{UserID: "u1"}

	failing := NewService(predictorFunc(func(context.Context, Conditions) (Prediction, error) {
		return Prediction{}, errors.New("connection refused")
	}), NewHistory(nil, 5))

	_, err := failing.Recommend(ctx, user, sampleConditions)
	assert.True(t, models.IsCode(err, models.CodeUpstream), "got %v", err)
	history, err := failing.History(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, history, "failed predictions are not recorded")

	_, err = failing.Recommend(ctx, auth.Principal{}, sampleConditions)
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))

	bad := sampleConditions
	bad.SoilPH = -2
	_, err = failing.Recommend(ctx, user, bad)
	assert.True(t, models.IsCode(err, models.CodeValidation))

	_, err = failing.History(ctx, auth.Principal{})
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))
}

func TestPredictionKey_RoundsReadings(t *testing.T) {
	t.Parallel()
	a := sampleConditions
	b := sampleConditions
	b.Temperature += 0.001
	assert.Equal(t, predictionKey(a), predictionKey(b))

	b.Temperature += 1
	assert.NotEqual(t, predictionKey(a), predictionKey(b))
}
