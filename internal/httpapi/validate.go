package httpapi

import (
	"sync"

	"mentorship-platform/internal/calls"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators adds the custom binding tags used by request structs:
//
//	calltype  any calls.Type
//	onetoone  chat, audio or video
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("calltype", func(fl validator.FieldLevel) bool {
			t, err := calls.ParseType(fl.Field().String())
			return err == nil && t.Valid()
		})
		_ = v.RegisterValidation("onetoone", func(fl validator.FieldLevel) bool {
			t, err := calls.ParseType(fl.Field().String())
			return err == nil && t.OneToOne()
		})
	})
}

// callType parses a value that already passed the calltype tag.
func callType(v string) calls.Type {
	t, _ := calls.ParseType(v)
	return t
}
