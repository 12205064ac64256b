package service

import (
	"context"
	"encoding/json"

	"codehosp/internal/common/mq"
	"codehosp/internal/study/model"
	appErr "codehosp/pkg/errors"
)

// HandleMessage processes one queued verification task. Malformed
// payloads are permanent failures so the consumer dead-letters them
// instead of retrying.
func (s *Service) HandleMessage(ctx context.Context, msg *mq.Message) error {
	if msg == nil {
		return mq.Permanent(appErr.New(appErr.InvalidParams).WithMessage("message is nil"))
	}
	var payload model.VerifyMessage
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		return mq.Permanent(appErr.Wrapf(err, appErr.InvalidParams, "decode message failed"))
	}
	if payload.StudyID <= 0 {
		return mq.Permanent(appErr.New(appErr.InvalidParams).WithMessage("message missing study id"))
	}
	_, err := s.RunVerification(ctx, payload.StudyID, payload.UserID)
	return err
}
