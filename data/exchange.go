// Copyright © 2024 Fluorologger Authors

package data

import (
	"encoding/json"
	"errors"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"
)

const RecordTopic = "/fluorologger/record"

// Exchange distributes live records over MQTT for display tools. It is
// entirely optional; the persistence path never depends on it.
type Exchange struct {
	client MQTT.Client
}

func ConnectExchange(clientID string) (*Exchange, error) {
	broker := viper.GetString("broker")
	if broker == "" {
		return nil, errors.New("data: no broker configured")
	}

	opts := MQTT.NewClientOptions().AddBroker(broker).SetClientID(clientID).SetCleanSession(true)
	client := MQTT.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &Exchange{client}, nil
}

// Publish sends one record as JSON. Failures are logged and dropped;
// the live feed is best-effort.
func (e *Exchange) Publish(r Record) {
	payload, err := json.Marshal(r)
	if err != nil {
		jww.ERROR.Println("exchange:", err)
		return
	}
	if token := e.client.Publish(RecordTopic, 0, false, payload); token.Wait() && token.Error() != nil {
		jww.WARN.Println("exchange: publish failed:", token.Error())
	}
}

// Subscribe invokes fn for every record published to the feed.
func (e *Exchange) Subscribe(fn func(Record)) error {
	token := e.client.Subscribe(RecordTopic, 0, func(client MQTT.Client, msg MQTT.Message) {
		var r Record
		if err := json.Unmarshal(msg.Payload(), &r); err != nil {
			jww.ERROR.Println("exchange: bad record payload:", err)
			return
		}
		fn(r)
	})
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (e *Exchange) Close() {
	e.client.Disconnect(250)
}
