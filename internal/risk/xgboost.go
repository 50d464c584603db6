package risk

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Booster evaluates a binary XGBoost gbtree model saved with
// Booster.save_model("model.json"). Only numerical splits are supported.
type Booster struct {
	trees        []tree
	baseMargin   float64
	numFeature   int
	featureNames []string
}

type tree struct {
	left        []int
	right       []int
	splitIndex  []int
	condition   []float64
	defaultLeft []bool
}

type boosterDoc struct {
	Learner struct {
		FeatureNames    []string `json:"feature_names"`
		GradientBooster struct {
			Name  string `json:"name"`
			Model struct {
				Trees []treeDoc `json:"trees"`
			} `json:"model"`
		} `json:"gradient_booster"`
		LearnerModelParam struct {
			BaseScore  string `json:"base_score"`
			NumClass   string `json:"num_class"`
			NumFeature string `json:"num_feature"`
		} `json:"learner_model_param"`
		Objective struct {
			Name string `json:"name"`
		} `json:"objective"`
	} `json:"learner"`
}

type treeDoc struct {
	LeftChildren    []int      `json:"left_children"`
	RightChildren   []int      `json:"right_children"`
	SplitIndices    []int      `json:"split_indices"`
	SplitConditions []float64  `json:"split_conditions"`
	DefaultLeft     []flexBool `json:"default_left"`
	SplitType       []int      `json:"split_type"`
}

// flexBool accepts both the boolean and the 0/1 encodings XGBoost versions use.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true", "1":
		*b = true
	case "false", "0":
		*b = false
	default:
		return fmt.Errorf("invalid boolean %s", data)
	}
	return nil
}

func DecodeBooster(payload []byte) (*Booster, error) {
	var doc boosterDoc
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode xgboost model: %w", err)
	}
	l := doc.Learner

	switch l.Objective.Name {
	case "binary:logistic", "reg:logistic":
	default:
		return nil, fmt.Errorf("unsupported xgboost objective %q", l.Objective.Name)
	}
	if l.GradientBooster.Name != "gbtree" {
		return nil, fmt.Errorf("unsupported xgboost booster %q", l.GradientBooster.Name)
	}
	if n, err := parseParamInt(l.LearnerModelParam.NumClass); err != nil {
		return nil, fmt.Errorf("num_class: %w", err)
	} else if n > 1 {
		return nil, fmt.Errorf("multi-class xgboost model (num_class=%d) is not binary", n)
	}

	baseScore, err := parseBaseScore(l.LearnerModelParam.BaseScore)
	if err != nil {
		return nil, err
	}
	numFeature, err := parseParamInt(l.LearnerModelParam.NumFeature)
	if err != nil {
		return nil, fmt.Errorf("num_feature: %w", err)
	}

	trees := make([]tree, 0, len(l.GradientBooster.Model.Trees))
	for i, td := range l.GradientBooster.Model.Trees {
		t, err := buildTree(td)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		trees = append(trees, t)
	}
	if len(trees) == 0 {
		return nil, errors.New("xgboost model has no trees")
	}

	return &Booster{
		trees:        trees,
		baseMargin:   logit(baseScore),
		numFeature:   numFeature,
		featureNames: l.FeatureNames,
	}, nil
}

func buildTree(td treeDoc) (tree, error) {
	n := len(td.LeftChildren)
	if n == 0 {
		return tree{}, errors.New("no nodes")
	}
	if len(td.RightChildren) != n || len(td.SplitIndices) != n || len(td.SplitConditions) != n || len(td.DefaultLeft) != n {
		return tree{}, errors.New("node arrays differ in length")
	}
	for i, st := range td.SplitType {
		if st != 0 {
			return tree{}, fmt.Errorf("node %d: categorical splits are not supported", i)
		}
	}

	t := tree{
		left:        td.LeftChildren,
		right:       td.RightChildren,
		splitIndex:  td.SplitIndices,
		condition:   td.SplitConditions,
		defaultLeft: make([]bool, n),
	}
	for i := 0; i < n; i++ {
		t.defaultLeft[i] = bool(td.DefaultLeft[i])
		if t.left[i] == -1 {
			continue
		}
		// Children always follow their parent, which also rules out cycles.
		if t.left[i] <= i || t.left[i] >= n || t.right[i] <= i || t.right[i] >= n {
			return tree{}, fmt.Errorf("node %d: child index out of range", i)
		}
		if t.splitIndex[i] < 0 {
			return tree{}, fmt.Errorf("node %d: negative split index", i)
		}
	}
	return t, nil
}

func (t tree) leaf(row []float64) (float64, error) {
	n := 0
	for t.left[n] != -1 {
		idx := t.splitIndex[n]
		if idx >= len(row) {
			return 0, fmt.Errorf("feature index %d out of range for %d features", idx, len(row))
		}
		fv := row[idx]
		switch {
		case math.IsNaN(fv):
			if t.defaultLeft[n] {
				n = t.left[n]
			} else {
				n = t.right[n]
			}
		case fv < t.condition[n]:
			n = t.left[n]
		default:
			n = t.right[n]
		}
	}
	return t.condition[n], nil
}

func (b *Booster) PredictProba(batch [][]float64) ([][2]float64, error) {
	out := make([][2]float64, len(batch))
	for i, row := range batch {
		margin := b.baseMargin
		for _, t := range b.trees {
			v, err := t.leaf(row)
			if err != nil {
				return nil, err
			}
			margin += v
		}
		p := sigmoid(margin)
		out[i] = [2]float64{1 - p, p}
	}
	return out, nil
}

func (b *Booster) NumFeatures() int {
	return b.numFeature
}

// FeatureNames returns the column names the model was trained with, if saved.
func (b *Booster) FeatureNames() []string {
	return b.featureNames
}

func parseBaseScore(s string) (float64, error) {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	if s == "" {
		return 0.5, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("base_score: %w", err)
	}
	if v <= 0 || v >= 1 {
		return 0, fmt.Errorf("base_score %v outside (0, 1)", v)
	}
	return v, nil
}

func parseParamInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
