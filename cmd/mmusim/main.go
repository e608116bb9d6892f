// Command mmusim drives a functional cache hierarchy from the command line.
//
// Usage:
//
//	mmusim run [trace...]     replay access traces
//	mmusim bench              run the synthetic workloads
//	mmusim serve [trace...]   replay traces and serve the state over HTTP
//	mmusim config init|show|validate
package main

func main() {
	Execute()
}
