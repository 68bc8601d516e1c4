package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/bodyfit/internal/classifier"
	"github.com/example/bodyfit/internal/logging"
	"github.com/example/bodyfit/internal/repository"
)

const processingTTL = 10 * time.Minute

// PoseDetector extracts body landmarks from an image.
type PoseDetector interface {
	Detect(ctx context.Context, imagePath string) (string, error)
}

// ToneDetector classifies skin tone, optionally guided by landmarks.
type ToneDetector interface {
	Detect(ctx context.Context, imagePath, keypointsText string) (string, error)
}

// Classifier asks the language model for body shape and undertone.
type Classifier interface {
	Classify(ctx context.Context, in classifier.Input) (classifier.Reply, error)
}

// UserStore applies body info patches to user records.
type UserStore interface {
	UpdateBodyInfo(ctx context.Context, userID string, patch repository.BodyInfoPatch) (*repository.User, error)
}

// HistoryStore keeps completed analyses.
type HistoryStore interface {
	SaveLog(ctx context.Context, log *repository.AnalysisLog) error
	FindByRequestIDAndUser(ctx context.Context, requestID, userID string) (*repository.AnalysisLog, error)
}

// Dependencies groups the collaborators of the service.
type Dependencies struct {
	Pose       PoseDetector
	Tone       ToneDetector
	Classifier Classifier
	Users      UserStore
	History    HistoryStore
	Cache      Cache
	ResultTTL  time.Duration
}

// Service runs the analysis pipeline for every mode.
type Service struct {
	pose       PoseDetector
	tone       ToneDetector
	classifier Classifier
	users      UserStore
	history    HistoryStore
	cache      Cache
	resultTTL  time.Duration
	logger     *zap.Logger
	removeFile func(string) error
	now        func() time.Time
}

// NewService constructs a new service instance.
func NewService(deps Dependencies, logger *zap.Logger) *Service {
	ttl := deps.ResultTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		pose:       deps.Pose,
		tone:       deps.Tone,
		classifier: deps.Classifier,
		users:      deps.Users,
		history:    deps.History,
		cache:      deps.Cache,
		resultTTL:  ttl,
		logger:     logger.Named("analysis"),
		removeFile: os.Remove,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Analyze validates req, runs detectors and classification as the mode
// requires, and persists whatever body info could be resolved. The uploaded
// image, if any, is removed before Analyze returns.
func (s *Service) Analyze(ctx context.Context, req Request) (*Outcome, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(s.logger, "analysis."+string(req.Mode), requestID)

	if req.ImagePath != "" {
		defer s.cleanup(opLogger, req.ImagePath)
	}

	if err := req.validate(); err != nil {
		return nil, err
	}

	record := &Record{
		RequestID: requestID,
		UserID:    req.UserID,
		Mode:      req.Mode,
		Status:    StatusProcessing,
		CreatedAt: s.now(),
	}
	s.putRecord(ctx, opLogger, record, processingTTL)

	outcome, err := s.run(ctx, opLogger, requestID, req)
	if err != nil {
		record.Status = StatusFailed
		record.Error = err.Error()
		s.putRecord(ctx, opLogger, record, s.resultTTL)
		return nil, err
	}

	record.Status = StatusCompleted
	record.Outcome = outcome
	s.putRecord(ctx, opLogger, record, s.resultTTL)
	s.saveHistory(ctx, opLogger, record)

	return outcome, nil
}

func (s *Service) run(ctx context.Context, opLogger *zap.Logger, requestID string, req Request) (*Outcome, error) {
	var landmarks, tone string
	if req.Mode.usesImage() {
		var err error
		landmarks, err = s.pose.Detect(ctx, req.ImagePath)
		if err != nil {
			return nil, s.fail(opLogger, "analysis.detect_pose", requestID, err)
		}
		tone, err = s.tone.Detect(ctx, req.ImagePath, landmarks)
		if err != nil {
			return nil, s.fail(opLogger, "analysis.detect_tone", requestID, err)
		}
		opLogger.Debug("detectors finished", zap.String("keypoints", landmarks), zap.String("tone", tone))
	}

	reply, err := s.classifier.Classify(ctx, req.classifierInput(landmarks, tone))
	if err != nil {
		return nil, s.fail(opLogger, "analysis.classify", requestID, err)
	}
	opLogger.Debug("classification reply", zap.Any("reply", reply))

	shape, undertone := req.resolve(reply)
	patch := repository.BodyInfoPatch{BodyShape: shape, Undertone: undertone}

	updated := false
	if !patch.Empty() {
		if _, err := s.users.UpdateBodyInfo(ctx, req.UserID, patch); err != nil {
			if !errors.Is(err, repository.ErrUserNotFound) {
				err = fmt.Errorf("%w: %w", ErrUnknownPersistence, err)
			}
			return nil, s.fail(opLogger, "analysis.persist", requestID, err)
		}
		updated = true
		opLogger.Info("user body info updated", zap.String("user_id", req.UserID), zap.Any("body_shape", shape), zap.Any("undertone", undertone))
	}

	return &Outcome{
		RequestID:       requestID,
		BodyShapeResult: reply,
		Saved:           req.Mode.summary(shape, undertone, updated),
	}, nil
}

// GetResult retrieves a recorded analysis from the cache or, failing that, history.
func (s *Service) GetResult(ctx context.Context, userID, requestID string) (*Record, error) {
	opLogger := logging.WithOperation(s.logger, "analysis.get_result", requestID)

	record, err := s.cache.Get(ctx, requestID)
	switch {
	case err == nil:
		if record.UserID != userID {
			return nil, ErrResultNotFound
		}
		return record, nil
	case !errors.Is(err, redis.Nil):
		opLogger.Warn("failed to read cache", zap.Error(err))
	}

	log, err := s.history.FindByRequestIDAndUser(ctx, requestID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, logging.NewOperationError("analysis.get_result", requestID, err)
	}
	return recordFromLog(log)
}

func (s *Service) fail(opLogger *zap.Logger, operation, requestID string, err error) error {
	wrapped := &logging.OperationError{Operation: operation, RequestID: requestID, Err: err}
	opLogger.Error("analysis stage failed", zap.String("stage", operation), zap.String("detail", wrapped.Detail()), zap.Error(err))
	return wrapped
}

func (s *Service) cleanup(opLogger *zap.Logger, path string) {
	if err := s.removeFile(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		opLogger.Error("file cleanup failed", zap.String("path", path), zap.Error(err))
	}
}

func (s *Service) putRecord(ctx context.Context, opLogger *zap.Logger, record *Record, ttl time.Duration) {
	if err := s.cache.Put(ctx, record, ttl); err != nil {
		opLogger.Warn("failed to cache analysis record", zap.String("status", string(record.Status)), zap.Error(err))
	}
}

func (s *Service) saveHistory(ctx context.Context, opLogger *zap.Logger, record *Record) {
	reply, err := json.Marshal(record.Outcome.BodyShapeResult)
	if err != nil {
		opLogger.Warn("failed to encode classification reply", zap.Error(err))
		return
	}
	saved := record.Outcome.Saved
	log := &repository.AnalysisLog{
		RequestID: record.RequestID,
		UserID:    record.UserID,
		Mode:      string(record.Mode),
		BodyShape: saved.BodyShape,
		Undertone: saved.Undertone,
		Updated:   saved.Updated,
		Reply:     string(reply),
		CreatedAt: record.CreatedAt,
	}
	if err := s.history.SaveLog(ctx, log); err != nil {
		opLogger.Warn("failed to persist analysis log", zap.Error(err))
	}
}

func recordFromLog(log *repository.AnalysisLog) (*Record, error) {
	var reply classifier.Reply
	if log.Reply != "" {
		if err := json.Unmarshal([]byte(log.Reply), &reply); err != nil {
			return nil, fmt.Errorf("decode stored reply: %w", err)
		}
	}
	return &Record{
		RequestID: log.RequestID,
		UserID:    log.UserID,
		Mode:      Mode(log.Mode),
		Status:    StatusCompleted,
		Outcome: &Outcome{
			RequestID:       log.RequestID,
			BodyShapeResult: reply,
			Saved: Saved{
				BodyShape: log.BodyShape,
				Undertone: log.Undertone,
				Updated:   log.Updated,
			},
		},
		CreatedAt: log.CreatedAt,
	}, nil
}
