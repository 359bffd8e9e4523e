package config

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"

	"github.com/Astemirdum/library-lending/library/internal/model"
	"github.com/Astemirdum/library-lending/pkg/kafka"
	"github.com/Astemirdum/library-lending/pkg/logger"
)

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"LIBRARY_HTTP_HOST" default:"0.0.0.0"`
	Port         string        `yaml:"port" envconfig:"LIBRARY_HTTP_PORT" default:"8060"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ" default:"10s"`
	WriteTimeout time.Duration
}

// Plans decodes MEMBERSHIP_PLANS entries of the form name:limit:discount
// separated by commas, e.g. "basic:3:0,premium:10:0.2".
type Plans []model.MembershipPlan

func (p *Plans) Decode(value string) error {
	var plans Plans
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return errors.Errorf("plan %q: want name:limit:discount", entry)
		}
		limit, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil {
			return errors.Wrapf(err, "plan %q limit", entry)
		}
		discount, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return errors.Wrapf(err, "plan %q discount", entry)
		}
		plans = append(plans, model.MembershipPlan{
			Name:          parts[0],
			CheckoutLimit: uint(limit),
			DiscountRate:  discount,
		})
	}
	*p = plans
	return nil
}

type Lending struct {
	LoanPeriod time.Duration `envconfig:"LOAN_PERIOD" default:"336h"`
	PerDayRate float64       `envconfig:"PER_DAY_RATE" default:"0.50"`
	Plans      Plans         `envconfig:"MEMBERSHIP_PLANS" default:"basic:3:0,premium:10:0.2"`
}

type Config struct {
	Server  HTTPServer `yaml:"server"`
	Kafka   kafka.Config
	Lending Lending
	Log     logger.Log `yaml:"log"`
}

var (
	once sync.Once
	cfg  Config
)

// NewConfig reads config from environment.
func NewConfig(ops ...Option) Config {
	once.Do(func() {
		config, err := Load(ops...)
		if err != nil {
			log.Fatal("NewConfig ", err)
		}
		cfg = config
		printConfig(cfg)
	})

	return cfg
}

// Load applies the options and then the environment, without memoizing.
func Load(ops ...Option) (Config, error) {
	var config Config
	for _, op := range ops {
		op(&config)
	}
	if err := envconfig.Process("", &config); err != nil {
		return Config{}, errors.Wrap(err, "envconfig")
	}
	return config, nil
}

func printConfig(cfg Config) {
	jscfg, _ := json.MarshalIndent(cfg, "", "	") //nolint:errcheck
	fmt.Println(string(jscfg))
}
