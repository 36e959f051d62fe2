package main

import (
	"context"
	"fmt"
	"log"
	"runtime"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/mdouchement/batchprint/internal/database"
	"github.com/mdouchement/batchprint/internal/document"
	"github.com/mdouchement/batchprint/internal/server"
	"github.com/muesli/coral"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	version  = "dev"
	revision = "none"
	date     = "unknown"

	cfg    string
	tenant string
)

func main() {
	c := &coral.Command{
		Use:     "batchprint",
		Short:   "Batch print server for mail notices",
		Version: fmt.Sprintf("%s - build %.7s @ %s - %s", version, revision, date, runtime.Version()),
		Args:    coral.ExactArgs(0),
	}
	initCmd.Flags().StringVarP(&cfg, "config", "c", "", "Configuration file")
	initCmd.Flags().StringVarP(&tenant, "tenant", "t", "", "Tenant namespace to provision")
	c.AddCommand(initCmd)

	serverCmd.Flags().StringVarP(&cfg, "config", "c", "", "Configuration file")
	c.AddCommand(serverCmd)

	if err := c.Execute(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func registry(konf *koanf.Koanf, logger logrus.FieldLogger) (*database.Registry, error) {
	dsn := konf.String("database_url")
	if dsn == "" {
		return nil, errors.New("database_url not found")
	}

	module := konf.String("module")
	if module == "" {
		module = "batchprint"
	}
	return database.NewRegistry(dsn, module, logger), nil
}

var (
	initCmd = &coral.Command{
		Use:   "init",
		Short: "Provision a tenant namespace",
		Args:  coral.ExactArgs(0),
		RunE: func(_ *coral.Command, _ []string) error {
			konf := koanf.New(".")
			if err := konf.Load(file.Provider(cfg), yaml.Parser()); err != nil {
				return err
			}
			if tenant == "" {
				return errors.New("tenant not provided")
			}

			logger := logrus.New()
			r, err := registry(konf, logger)
			if err != nil {
				return err
			}
			defer r.Close()

			client, err := r.Client(tenant)
			if err != nil {
				return err
			}
			return client.Init(context.Background())
		},
	}

	//
	//
	serverCmd = &coral.Command{
		Use:   "server",
		Short: "Start server",
		Args:  coral.ExactArgs(0),
		RunE: func(_ *coral.Command, _ []string) error {
			konf := koanf.New(".")
			if err := konf.Load(file.Provider(cfg), yaml.Parser()); err != nil {
				return err
			}

			logger := logrus.New()
			r, err := registry(konf, logger)
			if err != nil {
				return err
			}
			defer r.Close()

			engine := server.EchoEngine(server.Controller{
				Version:  version,
				Registry: r,
				Pipeline: document.NewPipeline(document.NewPDFEngine(), logger),
				Logger:   logger,
			})
			server.PrintRoutes(engine)

			address := konf.String("address")
			if address == "" {
				address = ":8081"
			}
			log.Printf("Server listening on %s\n", address)
			return errors.Wrap(engine.Start(address), "could not run server")
		},
	}
)
