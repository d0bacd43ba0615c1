// Package worker adapts the prediction service to asynchronous jobs delivered
// over Kafka.
package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/SumFormula-Intelligence/internal/application/sumformula"
	"github.com/turtacn/SumFormula-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/SumFormula-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SumFormula-Intelligence/pkg/errors"
)

// HeaderJobID carries the job identifier on result messages.
const HeaderJobID = "x-job-id"

// JobRequest is the payload of a request-topic message.
type JobRequest struct {
	JobID   string                     `json:"job_id,omitempty"`
	Request *sumformula.PredictRequest `json:"request"`
}

// JobResult is published to the result topic once per consumed request.
// Exactly one of Prediction and Error is set.
type JobResult struct {
	JobID       string                 `json:"job_id"`
	Prediction  *sumformula.Prediction `json:"prediction,omitempty"`
	Error       *sumformula.ItemError  `json:"error,omitempty"`
	CompletedAt time.Time              `json:"completed_at"`
}

// PredictionHandler turns request messages into result messages.
type PredictionHandler struct {
	service     sumformula.Service
	publisher   kafka.Publisher
	resultTopic string
	logger      logging.Logger
	now         func() time.Time
}

// NewPredictionHandler returns a handler publishing to resultTopic.
func NewPredictionHandler(svc sumformula.Service, pub kafka.Publisher, resultTopic string, logger logging.Logger) *PredictionHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &PredictionHandler{
		service:     svc,
		publisher:   pub,
		resultTopic: resultTopic,
		logger:      logger.Named("prediction-worker"),
		now:         time.Now,
	}
}

// Handle implements kafka.MessageHandler.  An undecodable message returns a
// client-class error so the consumer dead-letters it without retrying.  A
// failed prediction is reported on the result topic; only a failed publish
// is returned for retry.  A job interrupted by ctx returns ctx's error and
// publishes nothing, so the message is redelivered.
func (h *PredictionHandler) Handle(ctx context.Context, msg *kafka.Message) error {
	var job JobRequest
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		return errors.Wrap(err, errors.ErrCodeBadRequest, "undecodable job request")
	}
	if job.Request == nil {
		return errors.InvalidParam("job request has no prediction request")
	}
	if job.JobID == "" {
		job.JobID = string(msg.Key)
	}
	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}

	result := &JobResult{JobID: job.JobID}
	pred, err := h.service.Predict(ctx, job.Request)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		h.logger.Warn("prediction job failed",
			logging.String("job_id", job.JobID),
			logging.Float64("mass", job.Request.Mass),
			logging.Err(err))
		result.Error = sumformula.NewItemError(err)
	} else {
		result.Prediction = pred
	}
	result.CompletedAt = h.now().UTC()

	body, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encode job result")
	}

	headers := map[string]string{HeaderJobID: job.JobID, "content-type": "application/json"}
	if err := h.publisher.Publish(ctx, &kafka.ProducerMessage{
		Topic:   h.resultTopic,
		Key:     []byte(job.JobID),
		Value:   body,
		Headers: headers,
	}); err != nil {
		return err
	}

	h.logger.Debug("prediction job completed",
		logging.String("job_id", job.JobID),
		logging.Bool("failed", result.Error != nil))
	return nil
}

//Personal.AI order the ending
