// Package results persists executor output records, one JSON file per
// task under results/.
//
// Results are decoupled from task records: a result can outlive its
// task file and a vanished task never blocks result submission. Wait
// turns the file store into a rendezvous point by polling for the
// record to appear.
package results
