package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const TypePredict = "predict"

// PredictRequest points the classifier at an uploaded recording.
type PredictRequest struct {
	RecordingID int64  `json:"recording_id"`
	S3Key       string `json:"s3_key"`
}

func (r PredictRequest) Validate() error {
	if r.RecordingID <= 0 {
		return errors.New("recording_id must be positive")
	}
	if strings.TrimSpace(r.S3Key) == "" {
		return errors.New("s3_key is required")
	}
	return nil
}

type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

type PredictResult struct {
	RecordingID int64      `json:"recording_id"`
	Result      Prediction `json:"result"`
}

// PredictHandler is a placeholder classifier: after delay it labels every
// recording as a cough.
func PredictHandler(delay time.Duration) Handler {
	return func(ctx context.Context, job Job) (any, error) {
		var req PredictRequest
		if err := json.Unmarshal(job.Payload, &req); err != nil {
			return nil, fmt.Errorf("decode predict payload: %w", err)
		}
		if err := req.Validate(); err != nil {
			return nil, err
		}
		if delay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		return PredictResult{
			RecordingID: req.RecordingID,
			Result:      Prediction{Label: "cough", Confidence: 0.9},
		}, nil
	}
}
