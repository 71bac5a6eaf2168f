package repository

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"wisefido-coherence/internal/models"
)

// CalibrationRepository 校准历史仓库
//
// 校准样本和个性化权重写入 PostgreSQL；
// 服务重启时加载最近一次完成的权重，避免重新校准
type CalibrationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCalibrationRepository 创建校准仓库
func NewCalibrationRepository(db *sql.DB, logger *zap.Logger) *CalibrationRepository {
	return &CalibrationRepository{
		db:     db,
		logger: logger,
	}
}

// SaveSample 保存一条校准样本
func (r *CalibrationRepository) SaveSample(windowID, userID string, sample *models.CalibrationSample) error {
	query := `
		INSERT INTO calibration_samples (
			window_id,
			user_id,
			recorded_at,
			symbolic_value,
			biometric_frequency,
			self_report,
			activity_level
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(query,
		windowID,
		userID,
		sample.Timestamp,
		sample.SymbolicValue,
		sample.BiometricFrequency,
		sample.SelfReport,
		sample.ActivityLevel,
	)
	if err != nil {
		return fmt.Errorf("failed to insert calibration sample: %w", err)
	}

	return nil
}

// SaveWeights 保存窗口完成后计算出的个性化权重
func (r *CalibrationRepository) SaveWeights(windowID, userID string, weights *models.FusionWeights) error {
	query := `
		INSERT INTO calibration_weights (
			window_id,
			user_id,
			w_numerology,
			w_biometric,
			w_environmental,
			w_pattern,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`

	_, err := r.db.Exec(query,
		windowID,
		userID,
		weights.Numerology,
		weights.Biometric,
		weights.Environmental,
		weights.Pattern,
	)
	if err != nil {
		return fmt.Errorf("failed to insert calibration weights: %w", err)
	}

	r.logger.Info("Calibration weights persisted",
		zap.String("window_id", windowID),
		zap.String("user_id", userID),
	)

	return nil
}

// GetLatestWeights 获取用户最近一次完成的个性化权重
func (r *CalibrationRepository) GetLatestWeights(userID string) (*models.FusionWeights, error) {
	query := `
		SELECT
			w_numerology,
			w_biometric,
			w_environmental,
			w_pattern
		FROM calibration_weights
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	weights := &models.FusionWeights{}
	err := r.db.QueryRow(query, userID).Scan(
		&weights.Numerology,
		&weights.Biometric,
		&weights.Environmental,
		&weights.Pattern,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("weights not found for user: %s", userID)
		}
		return nil, fmt.Errorf("failed to query calibration weights: %w", err)
	}

	return weights, nil
}
