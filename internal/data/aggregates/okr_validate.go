package aggregates

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	domainagg "github.com/yungbote/okrbridge-backend/internal/domain/aggregates"
	"github.com/yungbote/okrbridge-backend/internal/domain/okr"
)

// okrValidate checks aggregate input structs. metric_kind and finite are the
// metric-shape tags; every other tag is a plain request validation failure.
var okrValidate *validator.Validate

func init() {
	okrValidate = validator.New()
	_ = okrValidate.RegisterValidation("metric_kind", validateMetricKind)
	_ = okrValidate.RegisterValidation("finite", validateFinite)
}

func validateMetricKind(fl validator.FieldLevel) bool {
	return okr.MetricKind(fl.Field().String()).Valid()
}

func validateFinite(fl validator.FieldLevel) bool {
	v := fl.Field().Float()
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

var metricTags = map[string]struct{}{
	"metric_kind": {},
	"finite":      {},
}

// validateInput runs struct validation and returns a coded aggregate error.
func validateInput(op string, in any) error {
	err := okrValidate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domainagg.NewError(domainagg.CodeValidation, op, err.Error(), err)
	}

	code := domainagg.CodeValidation
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if _, ok := metricTags[fe.Tag()]; ok {
			code = domainagg.CodeInvalidMetric
		}
		parts = append(parts, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return domainagg.NewError(code, op, strings.Join(parts, "; "), err)
}
