package cband

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/relaymesh/cband/irc"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

var ConfigSearchOrder = []string{
	"config",
	"/usr/local/var/cband/config",
	"/opt/homebrew/var/cband/config",
}

func LoadConfig(path string) (*irc.Config, error) {
	var config irc.Config

	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %v", err)
	}

	if err := yaml.Unmarshal(yamlFile, &config); err != nil {
		return nil, fmt.Errorf("unmarshal YAML: %v", err)
	}

	validate := validator.New()
	if err = validate.RegisterValidation("bcrypt", func(fl validator.FieldLevel) bool {
		_, err := bcrypt.Cost([]byte(fl.Field().String()))
		return err == nil
	}); err != nil {
		return nil, fmt.Errorf("register validation: %v", err)
	}
	if err = validate.Struct(config); err != nil {
		// Name the oper whose hash is unusable rather than the struct path
		if validationErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fieldErr := range validationErrs {
				if fieldErr.Field() == "PasswordHash" && fieldErr.Tag() == "bcrypt" {
					return nil, fmt.Errorf("%s is not a bcrypt hash", fieldErr.Namespace())
				}
			}
		}
		return nil, fmt.Errorf("validate config: %v", err)
	}

	return &config, nil
}
