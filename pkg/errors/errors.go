// Package errors はモデル選択ライブラリ全体のエラーハンドリングと警告システムを提供します。
// すべての構造化エラーは cockroachdb/errors でスタックトレースを付与して返されます。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		log.Printf("modelselect-warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler はライブラリ全体の警告ハンドラを設定します。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
// nil を渡すと従来のハンドラに戻ります。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが設定されている場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	警告型
//
// ===========================================================================

// NonMonotonicCurveWarning はエラーカーブが増加した区間を含む場合の警告です。
// エルボー法は単調非増加のカーブを前提としているため、選択結果の信頼性が下がります。
type NonMonotonicCurveWarning struct {
	Algorithm string
	K         int
	Previous  float64
	Current   float64
}

func (w *NonMonotonicCurveWarning) Error() string {
	return fmt.Sprintf("%s error curve increases at k=%d (%.6g -> %.6g); elbow selection assumes a non-increasing curve",
		w.Algorithm, w.K, w.Previous, w.Current)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *NonMonotonicCurveWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("algorithm", w.Algorithm).
		Int("k", w.K).
		Float64("previous", w.Previous).
		Float64("current", w.Current).
		Str("type", "NonMonotonicCurveWarning")
}

// NewNonMonotonicCurveWarning は新しいNonMonotonicCurveWarningを作成します。
func NewNonMonotonicCurveWarning(algorithm string, k int, previous, current float64) *NonMonotonicCurveWarning {
	return &NonMonotonicCurveWarning{Algorithm: algorithm, K: k, Previous: previous, Current: current}
}

// ConvergenceWarning は最適化アルゴリズムが収束しなかった場合に発生する警告です。
type ConvergenceWarning struct {
	Algorithm  string
	Iterations int
	Message    string
}

func (w *ConvergenceWarning) Error() string {
	if w.Message != "" {
		return fmt.Sprintf("%s failed to converge after %d iterations: %s", w.Algorithm, w.Iterations, w.Message)
	}
	return fmt.Sprintf("%s failed to converge after %d iterations. Consider increasing max_iter or adjusting parameters.", w.Algorithm, w.Iterations)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *ConvergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("algorithm", w.Algorithm).
		Int("iterations", w.Iterations).
		Str("message", w.Message).
		Str("type", "ConvergenceWarning")
}

// NewConvergenceWarning は新しいConvergenceWarningを作成します。
func NewConvergenceWarning(algorithm string, iterations int, message string) *ConvergenceWarning {
	return &ConvergenceWarning{Algorithm: algorithm, Iterations: iterations, Message: message}
}

// ===========================================================================
//
//	データ分割・評価のエラー型
//
// ===========================================================================

// InvalidFractionError は分割比率やサンプリング比率が (0, 1) の範囲外の場合のエラーです。
type InvalidFractionError struct {
	Op       string
	Fraction float64
}

func (e *InvalidFractionError) Error() string {
	return fmt.Sprintf("modelselect: %s: fraction must be in the open interval (0, 1), got %v", e.Op, e.Fraction)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *InvalidFractionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Float64("fraction", e.Fraction).
		Str("type", "InvalidFractionError")
}

// NewInvalidFractionError は新しいInvalidFractionErrorを作成し、スタックトレースを付与します。
func NewInvalidFractionError(op string, fraction float64) error {
	return errors.WithStack(&InvalidFractionError{Op: op, Fraction: fraction})
}

// EmptyDatasetError はレコードが1件もないデータセットが渡された場合のエラーです。
type EmptyDatasetError struct {
	Op string
}

func (e *EmptyDatasetError) Error() string {
	return fmt.Sprintf("modelselect: %s: dataset has no records", e.Op)
}

// Is は ErrEmptyData との比較を可能にします。
func (e *EmptyDatasetError) Is(target error) bool {
	return target == ErrEmptyData
}

// NewEmptyDatasetError は新しいEmptyDatasetErrorを作成し、スタックトレースを付与します。
func NewEmptyDatasetError(op string) error {
	return errors.WithStack(&EmptyDatasetError{Op: op})
}

// LengthMismatchError は正解系列と予測系列の長さが異なる場合のエラーです。
type LengthMismatchError struct {
	Op      string
	TrueLen int
	PredLen int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("modelselect: %s: length mismatch between true (%d) and predicted (%d) values", e.Op, e.TrueLen, e.PredLen)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *LengthMismatchError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("true_len", e.TrueLen).
		Int("pred_len", e.PredLen).
		Str("type", "LengthMismatchError")
}

// NewLengthMismatchError は新しいLengthMismatchErrorを作成し、スタックトレースを付与します。
func NewLengthMismatchError(op string, trueLen, predLen int) error {
	return errors.WithStack(&LengthMismatchError{Op: op, TrueLen: trueLen, PredLen: predLen})
}

// EmptyEvaluationError は評価対象の系列が空の場合のエラーです。
type EmptyEvaluationError struct {
	Op string
}

func (e *EmptyEvaluationError) Error() string {
	return fmt.Sprintf("modelselect: %s: nothing to evaluate (zero-length input)", e.Op)
}

// Is は ErrEmptyData との比較を可能にします。
func (e *EmptyEvaluationError) Is(target error) bool {
	return target == ErrEmptyData
}

// NewEmptyEvaluationError は新しいEmptyEvaluationErrorを作成し、スタックトレースを付与します。
func NewEmptyEvaluationError(op string) error {
	return errors.WithStack(&EmptyEvaluationError{Op: op})
}

// InsufficientDataError はアルゴリズムに必要な最小点数に満たない場合のエラーです。
type InsufficientDataError struct {
	Op       string
	Required int
	Got      int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("modelselect: %s: need at least %d points, got %d", e.Op, e.Required, e.Got)
}

// NewInsufficientDataError は新しいInsufficientDataErrorを作成し、スタックトレースを付与します。
func NewInsufficientDataError(op string, required, got int) error {
	return errors.WithStack(&InsufficientDataError{Op: op, Required: required, Got: got})
}

// ===========================================================================
//
//	モデル選択のエラー型
//
// ===========================================================================

// TrainerError は外部トレーナー（学習アルゴリズム）の失敗をラップします。
// 学習失敗はリトライされず、そのまま呼び出し元に伝播します。
type TrainerError struct {
	Algorithm string
	Op        string // "train", "predict", "evaluate"
	Err       error
}

func (e *TrainerError) Error() string {
	return fmt.Sprintf("modelselect: trainer %s failed during %s: %v", e.Algorithm, e.Op, e.Err)
}

func (e *TrainerError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *TrainerError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("algorithm", e.Algorithm).
		Str("operation", e.Op).
		AnErr("cause", e.Err).
		Str("type", "TrainerError")
}

// NewTrainerError は新しいTrainerErrorを作成し、スタックトレースを付与します。
func NewTrainerError(algorithm, op string, err error) error {
	return errors.WithStack(&TrainerError{Algorithm: algorithm, Op: op, Err: err})
}

// UnsupportedTaskKindError はclassification/regression/clustering以外のタスクが指定された場合のエラーです。
type UnsupportedTaskKindError struct {
	Kind string
}

func (e *UnsupportedTaskKindError) Error() string {
	return fmt.Sprintf("modelselect: unsupported task kind %q (want classification, regression or clustering)", e.Kind)
}

// NewUnsupportedTaskKindError は新しいUnsupportedTaskKindErrorを作成し、スタックトレースを付与します。
func NewUnsupportedTaskKindError(kind string) error {
	return errors.WithStack(&UnsupportedTaskKindError{Kind: kind})
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// NotFittedError はモデルが未学習の状態で `Predict` を呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("modelselect: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("modelselect: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, e.axisName(), e.Expected, e.Got)
}

func (e *DimensionError) axisName() string {
	if e.Axis == 0 {
		return "rows"
	}
	return "features"
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", e.axisName()).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValidationError は入力パラメータの検証に失敗した場合のエラーです。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("modelselect: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("modelselect: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// ModelError は機械学習モデルに関する一般的なエラーです。
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("modelselect: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("modelselect: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError は新しいModelErrorを作成し、スタックトレースを付与します。
func NewModelError(op, kind string, err error) error {
	return errors.WithStack(&ModelError{Op: op, Kind: kind, Err: err})
}

// NumericalInstabilityError は数値計算が不安定になった場合のエラーです。
// NaN、Infを検出します。
type NumericalInstabilityError struct {
	Operation string
	Values    []float64
	Iteration int
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("modelselect: numerical instability detected in %s at iteration %d. Values: [%s]",
		e.Operation, e.Iteration, valStr)
}

// NewNumericalInstabilityError は新しいNumericalInstabilityErrorを作成します。
func NewNumericalInstabilityError(operation string, values []float64, iteration int) error {
	return errors.WithStack(&NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Iteration: iteration,
	})
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// GetSafeDetails はスタックトレースなどの安全な詳細情報を取り出します。
func GetSafeDetails(err error) []string {
	return errors.GetSafeDetails(err).SafeDetails
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix は特異行列の場合のエラーです。
	ErrSingularMatrix = New("singular matrix")

	// ErrAlreadyRun は一度実行済みのオーケストレーターを再実行しようとした場合のエラーです。
	ErrAlreadyRun = New("selection run already finished")
)
