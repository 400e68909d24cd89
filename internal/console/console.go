package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"clinic_booking_bot/internal/dialogue"
	"clinic_booking_bot/internal/extractor"
	"clinic_booking_bot/pkg/logger"
	"clinic_booking_bot/pkg/metrics"
)

const (
	separator = "--------------------------------------------------------------------------------"

	msgWelcome = "Welcome to %s!\n" +
		"I am your virtual assistant. I can help you with your queries and set up appointments.\n" +
		"Type 'exit' to quit."
	msgFallback = "Sorry, I don't have enough information to answer that question. Please contact us at %s for more information."
	msgAfterEnd = "Do you have any additional queries or wish to set up an appointment? if not type 'exit' to quit."
	msgGoodbye  = "Goodbye!"
)

// Chat консольный ассистент: построчный ввод, одна сессия записи за раз
type Chat struct {
	engine *dialogue.Engine
	intent extractor.Extractor
	clinic string
	in     *bufio.Scanner
	out    io.Writer
	logger *logger.Logger
}

// New создает консольный чат поверх движка диалога
func New(engine *dialogue.Engine, intent extractor.Extractor, clinic string, in io.Reader, out io.Writer, log *logger.Logger) *Chat {
	return &Chat{
		engine: engine,
		intent: intent,
		clinic: clinic,
		in:     bufio.NewScanner(in),
		out:    out,
		logger: log,
	}
}

// Run ведет диалог до "exit", конца ввода или отмены контекста
func (c *Chat) Run(ctx context.Context) error {
	c.say(fmt.Sprintf(msgWelcome, c.clinic))

	var st *dialogue.State
	for {
		if err := ctx.Err(); err != nil {
			c.abandon(st)
			return nil
		}

		line, ok := c.read()
		if !ok {
			c.abandon(st)
			return c.in.Err()
		}

		if strings.EqualFold(strings.TrimSpace(line), "exit") {
			c.abandon(st)
			c.say(msgGoodbye)
			return nil
		}

		if st == nil {
			if !dialogue.WantsBooking(ctx, c.intent, line) {
				c.say(fmt.Sprintf(msgFallback, c.clinic))
				continue
			}
			c.say(dialogue.BookingRequested())

			var reply dialogue.Reply
			st, reply = c.engine.Start()
			metrics.RecordSessionStart("console")
			c.show(reply)
			continue
		}

		reply := c.engine.Step(ctx, st, line)
		c.show(reply)
		if reply.Done {
			if reply.Outcome != nil && reply.Outcome.PersistErr != nil {
				c.logger.Error("Booking kept in memory only", logger.Error(reply.Outcome.PersistErr))
			}
			st = nil
			c.say(msgAfterEnd)
		}
	}
}

func (c *Chat) abandon(st *dialogue.State) {
	if st != nil {
		c.engine.Abandon(st, dialogue.ReasonAbandoned)
	}
}

func (c *Chat) read() (string, bool) {
	fmt.Fprintln(c.out, separator)
	fmt.Fprint(c.out, "You: ")
	if !c.in.Scan() {
		fmt.Fprintln(c.out)
		return "", false
	}
	return c.in.Text(), true
}

func (c *Chat) show(reply dialogue.Reply) {
	for _, msg := range reply.Messages {
		c.say(msg)
	}
}

func (c *Chat) say(msg string) {
	fmt.Fprintln(c.out, separator)
	fmt.Fprintf(c.out, "Assistant: %s\n", msg)
}
