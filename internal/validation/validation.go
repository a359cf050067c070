package validation

import (
	"reflect"
	"strings"

	"estoque/internal/models"

	"github.com/go-playground/validator/v10"
)

// Messages returned to API clients.
const (
	MsgNameRequired     = "O nome do produto é obrigatório"
	MsgNameTooShort     = "O nome deve ter pelo menos 2 caracteres"
	MsgQuantityInvalid  = "A quantidade deve ser um número inteiro não negativo"
	MsgUsernameRequired = "O nome de usuário é obrigatório"
	MsgPasswordRequired = "A senha é obrigatória"
)

// invalidQuantityValue stands in for a quantity that is missing or not an
// integer, so the gte=0 rule rejects it.
const invalidQuantityValue = -1

// FieldError is a single violation, reported as {"field", "message"}.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors collects every violation found in a payload.
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// ProductRequest is the body accepted by POST and PUT /produtos.
type ProductRequest struct {
	Nome       string   `json:"nome" form:"nome" validate:"required,min=2"`
	Quantidade Quantity `json:"quantidade" form:"quantidade" validate:"gte=0"`
	Imagem     string   `json:"imagem" form:"imagem"`
}

type credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

var messages = map[string]map[string]string{
	"nome":       {"required": MsgNameRequired, "min": MsgNameTooShort},
	"quantidade": {"gte": MsgQuantityInvalid},
	"username":   {"required": MsgUsernameRequired},
	"password":   {"required": MsgPasswordRequired},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		q, ok := field.Interface().(Quantity)
		if !ok {
			return invalidQuantityValue
		}
		n, ok := q.Int()
		if !ok {
			return invalidQuantityValue
		}
		return n
	}, Quantity{})
	return v
}

// ValidateProduct trims and validates a product payload. It returns the
// normalized input, or every violation found.
func ValidateProduct(req ProductRequest) (models.ProductInput, Errors) {
	req.Nome = strings.TrimSpace(req.Nome)
	if errs := withNameLength(check(req)); len(errs) > 0 {
		return models.ProductInput{}, errs
	}
	qty, _ := req.Quantidade.Int()
	return models.ProductInput{
		Name:     req.Nome,
		Quantity: qty,
		Image:    strings.TrimSpace(req.Imagem),
	}, nil
}

// ValidateCredentials checks that both username and password are present.
func ValidateCredentials(username, password string) Errors {
	return check(credentials{Username: username, Password: password})
}

// withNameLength reports a missing name as too short as well. The validator
// stops at the first failing tag of a field.
func withNameLength(errs Errors) Errors {
	for i, fe := range errs {
		if fe.Field != "nome" || fe.Message != MsgNameRequired {
			continue
		}
		out := make(Errors, 0, len(errs)+1)
		out = append(out, errs[:i+1]...)
		out = append(out, FieldError{Field: "nome", Message: MsgNameTooShort})
		return append(out, errs[i+1:]...)
	}
	return errs
}

func check(s interface{}) Errors {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return Errors{{Field: "", Message: err.Error()}}
	}
	errs := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return errs
}

func message(fe validator.FieldError) string {
	if msg, ok := messages[fe.Field()][fe.Tag()]; ok {
		return msg
	}
	return "campo inválido: " + fe.Tag()
}
