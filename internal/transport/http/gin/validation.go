package httpgin

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/kirinyoku/tabgo/internal/domain"
)

var registerOnce sync.Once

// registerValidators adds the enum tags used by request bodies to gin's
// validator.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		_ = v.RegisterValidation("splitmode", func(fl validator.FieldLevel) bool {
			return domain.SplitMode(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("checkstatus", func(fl validator.FieldLevel) bool {
			return domain.CheckStatus(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("tablestatus", func(fl validator.FieldLevel) bool {
			return domain.TableStatus(fl.Field().String()).Valid()
		})
	})
}
