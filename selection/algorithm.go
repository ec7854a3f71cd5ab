package selection

import (
	"strings"

	"github.com/YuminosukeSato/modelselect/pkg/errors"
)

// AlgorithmID identifies one candidate algorithm family.
type AlgorithmID int

// 候補となるアルゴリズムファミリー
const (
	NaiveBayes AlgorithmID = iota + 1
	RandomForest
	Lasso
	Ridge
	LinearRegression
	KMeans
	GaussianMixture
)

var algorithmNames = map[AlgorithmID]string{
	NaiveBayes:       "NaiveBayes",
	RandomForest:     "RandomForest",
	Lasso:            "Lasso",
	Ridge:            "Ridge",
	LinearRegression: "LinearRegression",
	KMeans:           "KMeans",
	GaussianMixture:  "GaussianMixture",
}

// 正規化（小文字化し空白・記号を除去）した別名からの対応表
var algorithmAliases = map[string]AlgorithmID{
	"naivebayes":       NaiveBayes,
	"nb":               NaiveBayes,
	"gaussiannb":       NaiveBayes,
	"randomforest":     RandomForest,
	"rf":               RandomForest,
	"lasso":            Lasso,
	"ridge":            Ridge,
	"linear":           LinearRegression,
	"linearregression": LinearRegression,
	"ols":              LinearRegression,
	"kmeans":           KMeans,
	"gaussianmixture":  GaussianMixture,
	"gaussian":         GaussianMixture,
	"gmm":              GaussianMixture,
}

// AllAlgorithms returns every known family in declaration order.
func AllAlgorithms() []AlgorithmID {
	return []AlgorithmID{NaiveBayes, RandomForest, Lasso, Ridge, LinearRegression, KMeans, GaussianMixture}
}

func (a AlgorithmID) String() string {
	if name, ok := algorithmNames[a]; ok {
		return name
	}
	return "Unknown"
}

// Valid reports whether a names a known family.
func (a AlgorithmID) Valid() bool {
	_, ok := algorithmNames[a]
	return ok
}

// Kind returns the task kind the family solves.
func (a AlgorithmID) Kind() TaskKind {
	switch a {
	case NaiveBayes, RandomForest:
		return Classification
	case Lasso, Ridge, LinearRegression:
		return Regression
	case KMeans, GaussianMixture:
		return Clustering
	}
	return 0
}

// MarshalText implements encoding.TextMarshaler.
func (a AlgorithmID) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, errors.NewValidationError("algorithm", "unknown algorithm id", int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *AlgorithmID) UnmarshalText(text []byte) error {
	id, err := ParseAlgorithmID(string(text))
	if err != nil {
		return err
	}
	*a = id
	return nil
}

// ParseAlgorithmID は名前からアルゴリズムを解決する。
// 大文字小文字・空白・"-"・"_" は区別しないので "Naive Bayes" や "random_forest" も受け付ける。
func ParseAlgorithmID(s string) (AlgorithmID, error) {
	if id, ok := algorithmAliases[normalizeName(s)]; ok {
		return id, nil
	}
	return 0, errors.NewValidationError("algorithm", "unknown algorithm", s)
}

func normalizeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_', '.':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))
}

// TaskKind is the kind of learning problem being solved.
type TaskKind int

// タスクの種類
const (
	Classification TaskKind = iota + 1
	Regression
	Clustering
)

func (k TaskKind) String() string {
	switch k {
	case Classification:
		return "classification"
	case Regression:
		return "regression"
	case Clustering:
		return "clustering"
	}
	return "unknown"
}

// Valid reports whether k is one of the supported kinds.
func (k TaskKind) Valid() bool {
	return k >= Classification && k <= Clustering
}

// Supervised reports whether the kind needs labeled data.
func (k TaskKind) Supervised() bool {
	return k == Classification || k == Regression
}

// Category returns the category the kind belongs to.
func (k TaskKind) Category() Category {
	if k.Supervised() {
		return Supervised
	}
	return Unsupervised
}

// MarshalText implements encoding.TextMarshaler.
func (k TaskKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, errors.NewUnsupportedTaskKindError(k.String())
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *TaskKind) UnmarshalText(text []byte) error {
	kind, err := ParseTaskKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// ParseTaskKind parses "classification", "regression" or "clustering".
// Anything else yields an UnsupportedTaskKindError.
func ParseTaskKind(s string) (TaskKind, error) {
	switch normalizeName(s) {
	case "classification":
		return Classification, nil
	case "regression":
		return Regression, nil
	case "clustering":
		return Clustering, nil
	}
	return 0, errors.NewUnsupportedTaskKindError(s)
}

// Category groups task kinds by whether they need labels.
type Category int

// カテゴリ
const (
	Supervised Category = iota + 1
	Unsupervised
)

func (c Category) String() string {
	switch c {
	case Supervised:
		return "supervised"
	case Unsupervised:
		return "unsupervised"
	}
	return "unknown"
}

// ParseCategory parses "supervised" or "unsupervised".
func ParseCategory(s string) (Category, error) {
	switch normalizeName(s) {
	case "supervised":
		return Supervised, nil
	case "unsupervised":
		return Unsupervised, nil
	}
	return 0, errors.NewValidationError("category", "must be supervised or unsupervised", s)
}

// CheckCategory はカテゴリとタスクの組み合わせを検証する。
// classification/regression は supervised、clustering は unsupervised に属する
func CheckCategory(c Category, k TaskKind) error {
	if !k.Valid() {
		return errors.NewUnsupportedTaskKindError(k.String())
	}
	if k.Category() != c {
		return errors.NewValidationError("kind", "task kind does not belong to category "+c.String(), k.String())
	}
	return nil
}

// DefaultCandidates returns the candidate families compared for kind, in
// tie-break priority order.
func DefaultCandidates(kind TaskKind) []AlgorithmID {
	switch kind {
	case Classification:
		return []AlgorithmID{NaiveBayes, RandomForest}
	case Regression:
		return []AlgorithmID{Lasso, LinearRegression, Ridge}
	case Clustering:
		return []AlgorithmID{KMeans, GaussianMixture}
	}
	return nil
}
