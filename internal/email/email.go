package email

import (
	"context"
	"fmt"

	"github.com/Domenick1991/aircargo/internal/kafka"
)

type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, event kafka.CargoEvent) error {
	fmt.Printf("send email to %s: booking %s is %s (%s -> %s, %dkg)\n",
		event.CustomerEmail, event.RefID, event.Type, event.Origin, event.Destination, event.WeightKg)
	return nil
}
