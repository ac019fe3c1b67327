package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(rateLimited, commands, chatTurns)
}

var (
	rateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "puzle_rate_limited_total",
		Help: "Requests rejected by the daily limit.",
	})

	commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "puzle_commands_total",
			Help: "Slash commands handled, by command name.",
		},
		[]string{"command"},
	)

	chatTurns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "puzle_chat_turns_total",
			Help: "Completed chat turns by history backend (memory, db).",
		},
		[]string{"backend"},
	)
)

func RateLimited() { rateLimited.Inc() }

func CommandHandled(name string) { commands.WithLabelValues(norm(name)).Inc() }

func ChatTurn(backend string) { chatTurns.WithLabelValues(norm(backend)).Inc() }
