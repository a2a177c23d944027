package main

import (
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/zsmartex/launchpad/config"
	"github.com/zsmartex/launchpad/workers/daemons"
	"github.com/zsmartex/launchpad/workers/engines"
)

func main() {
	if err := config.InitializeConfig(); err != nil {
		fmt.Println(err.Error())
		return
	}

	recorder := engines.NewRecorderWorker()
	for _, subject := range recorder.Subjects() {
		if _, err := config.Nats.Subscribe(subject, func(m *nats.Msg) {
			if err := recorder.Process(m.Subject, m.Data); err != nil {
				config.Logger.Errorf("[launchpad.recorder] %s: %v", m.Subject, err)
			}
		}); err != nil {
			config.Logger.Fatalf("subscribe %s: %v", subject, err)
		}
	}

	daemons.NewCronJob().Start()
}
