package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix starts the names of the environment variables that override
// parameters, such as VCACHE_DCACHE_SETS or VCACHE_MMU_ENABLED.
const EnvPrefix = "VCACHE"

// ApplyEnv loads the given .env files, or ./.env if it exists and no file is
// given, and then overrides parameters with the VCACHE_* environment
// variables. Variables already set in the process win over .env files.
func (c *Config) ApplyEnv(envFiles ...string) error {
	if len(envFiles) == 0 {
		_, err := os.Stat(".env")
		if err == nil {
			envFiles = []string{".env"}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return err
		}
	}

	return applyEnv(reflect.ValueOf(c).Elem(), EnvPrefix)
}

func applyEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		name := prefix + "_" + strings.ToUpper(tagName(t.Field(i)))
		field := v.Field(i)

		if field.Kind() == reflect.Struct {
			if err := applyEnv(field, name); err != nil {
				return err
			}

			continue
		}

		value, ok := os.LookupEnv(name)
		if !ok {
			continue
		}

		if err := setFromString(field, value); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	return nil
}

func setFromString(field reflect.Value, s string) error {
	switch field.Kind() {
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}

		field.SetBool(b)
	case reflect.String:
		field.SetString(s)
	case reflect.Int:
		n, err := strconv.ParseInt(s, 0, 0)
		if err != nil {
			return err
		}

		field.SetInt(n)
	case reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 0, field.Type().Bits())
		if err != nil {
			return err
		}

		field.SetUint(n)
	default:
		panic("never")
	}

	return nil
}
