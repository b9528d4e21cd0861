// Command taskflow runs the scheduling core as a single process: the HTTP
// command surface, the Smart Scheduler's timers, and the Kafka-backed
// notification dispatcher.
package main

import "github.com/adil-adysh/plan-flow/internal/cli"

func main() {
	cli.Execute()
}
