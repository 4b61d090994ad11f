package main

import (
	"clinic-booking/cmd/bootstrap"

	"github.com/sirupsen/logrus"
)

func main() {
	// Startup failures are logged before bootstrap configures the logger.
	logrus.SetFormatter(&logrus.JSONFormatter{})

	app, err := bootstrap.New()
	if err != nil {
		logrus.Fatalf("Failed to initialize clinic booking service: %v", err)
	}

	app.Run()
}
