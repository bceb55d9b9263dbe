// Oracle is a streaming gateway for AI interpretations of BaZi charts.
//
// Clients open a WebSocket to /ws/ai and submit a chart; the interpretation
// streams back in chunks as the provider produces it. The same generation is
// available as a single JSON response from POST /api/interpret/bazi.
//
// Usage:
//
//	# Start the gateway with default configuration
//	oracle serve
//
//	# Start with a custom configuration file
//	oracle serve --config /etc/oracle/config.yaml
//
//	# Check a configuration file without starting
//	oracle validate --config config.yaml
//
//	# Export the last day of the generation ledger
//	oracle ledger export --since 24h --format csv -o ledger.csv
//
//	# Show version information
//	oracle version
package main

func main() {
	Execute()
}
