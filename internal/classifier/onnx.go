package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/opensource-finance/harrier/internal/domain"
)

// modelFeatureOrder is the input column order the approval model was trained
// with. Categorical fields are expected pre-encoded as numerics; anything
// missing or non-numeric enters the tensor as zero.
var modelFeatureOrder = []string{
	domain.FeatureAge,
	domain.FeatureEducationLevel,
	domain.FeatureEmploymentType,
	domain.FeatureEmploymentYears,
	domain.FeatureMonthlyIncome,
	domain.FeatureFixedExpenses,
	domain.FeatureDebtToIncome,
	domain.FeatureSavingsBalance,
	domain.FeatureLoanAmount,
	domain.FeatureLoanDuration,
	domain.FeatureLoanPurpose,
	domain.FeatureCreditScore,
	domain.FeatureLatePayments12m,
	domain.FeatureMissedPayments12m,
	domain.FeatureUtilityOnTimeRatio,
	domain.FeatureIncomeInflation,
	domain.FeatureApplicationVelocity,
}

// ONNXClassifier runs the approval model through ONNX Runtime. When the
// model file is absent it falls back to a deterministic scorecard so the
// Community tier works out of the box without a model artifact.
//
// An AdvancedSession operates on the tensors bound to it at creation, so the
// classifier keeps one input and one output tensor and serializes inference
// calls: each call writes the feature vector into the bound input buffer,
// runs the session, and reads the bound output buffer.
type ONNXClassifier struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	logger       *slog.Logger

	mu sync.Mutex
}

// ModelConfig for loading the approval model.
type ModelConfig struct {
	ModelPath  string
	InputName  string
	OutputName string
}

// DefaultModelConfig returns the conventional tensor names for exported
// scikit-learn pipelines.
func DefaultModelConfig(modelPath string) ModelConfig {
	return ModelConfig{
		ModelPath:  modelPath,
		InputName:  "input",
		OutputName: "probabilities",
	}
}

// NewONNXClassifier loads and initializes the approval model.
func NewONNXClassifier(cfg ModelConfig, logger *slog.Logger) (*ONNXClassifier, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}

	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		logger.Warn("model file not found, using scorecard predictions", "path", cfg.ModelPath)
		return &ONNXClassifier{logger: logger}, nil
	}

	inputTensor, err := ort.NewTensor(
		ort.NewShape(1, int64(len(modelFeatureOrder))),
		make([]float32, len(modelFeatureOrder)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewTensor(ort.NewShape(1, 2), make([]float32, 2))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		nil,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	logger.Info("approval model loaded", "path", cfg.ModelPath)

	return &ONNXClassifier{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		logger:       logger,
	}, nil
}

// Classes returns the class labels in probability order: 0 = rejected,
// 1 = approved.
func (m *ONNXClassifier) Classes() []int {
	return []int{0, 1}
}

// PredictProba runs inference for one feature vector and returns the
// [p_reject, p_approve] probability pair.
func (m *ONNXClassifier) PredictProba(ctx context.Context, features domain.ApplicationFeatures) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		pApprove := scorecard(features)
		return []float64{1 - pApprove, pApprove}, nil
	}

	inputData := m.inputTensor.GetData()
	for i, name := range modelFeatureOrder {
		inputData[i] = float32(features.Float(name, 0))
	}

	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("failed to run inference: %w", err)
	}

	outputData := m.outputTensor.GetData()
	pReject := clamp01(float64(outputData[0]))
	pApprove := clamp01(float64(outputData[1]))

	return []float64{pReject, pApprove}, nil
}

// Close releases model resources.
func (m *ONNXClassifier) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		m.session.Destroy()
		m.session = nil
	}
	if m.inputTensor != nil {
		m.inputTensor.Destroy()
		m.inputTensor = nil
	}
	if m.outputTensor != nil {
		m.outputTensor.Destroy()
		m.outputTensor = nil
	}
	return nil
}

// scorecard is the fallback approval model: a logistic score over the core
// financial features, monotone in each of them. Not a substitute for a
// trained model, but directionally sane for demos and tests.
func scorecard(f domain.ApplicationFeatures) float64 {
	income := f.Float(domain.FeatureMonthlyIncome, 0)
	expenses := f.Float(domain.FeatureFixedExpenses, 0)
	dti := f.Float(domain.FeatureDebtToIncome, 0.5)
	credit := f.Float(domain.FeatureCreditScore, 600)
	savings := f.Float(domain.FeatureSavingsBalance, 0)
	employment := f.Float(domain.FeatureEmploymentYears, 0)
	loan := f.Float(domain.FeatureLoanAmount, 0)
	duration := f.Float(domain.FeatureLoanDuration, 36)
	utility := f.Float(domain.FeatureUtilityOnTimeRatio, 0.9)
	missed := f.Float(domain.FeatureMissedPayments12m, 0)
	late := f.Float(domain.FeatureLatePayments12m, 0)

	disposable := income - expenses
	loanBurden := 0.0
	if income > 0 && duration > 0 {
		loanBurden = (loan / duration) / income
	}

	z := -0.5 +
		0.00035*disposable +
		0.008*(credit-600) +
		0.00004*savings +
		0.12*employment +
		1.5*utility -
		3.0*dti -
		2.5*loanBurden -
		0.35*missed -
		0.20*late

	return clamp01(1 / (1 + math.Exp(-z)))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
