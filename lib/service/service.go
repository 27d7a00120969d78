package service

import (
	"github.com/getAlby/finhub.go/rabbitmq"
	"github.com/uptrace/bun"
	"github.com/ziflex/lecho/v3"
)

type FinhubService struct {
	Config         *Config
	DB             *bun.DB
	Logger         *lecho.Logger
	RabbitMQClient rabbitmq.Client
}

func (svc *FinhubService) currency(currency string) string {
	if currency != "" {
		return currency
	}
	if svc.Config != nil && svc.Config.DefaultCurrency != "" {
		return svc.Config.DefaultCurrency
	}
	return "KES"
}
