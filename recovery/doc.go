// Package recovery publishes post-meeting diarization recovery jobs.
//
// Scheduling recovery is a one-way notification: the live session only
// records that a job was requested and hands it to a Queue. The batch
// system that consumes the queue is out of scope.
//
// Backends:
//   - Memory: in-process slice, for tests and single-node setups
//   - RedisQueue: LPUSH onto a Redis list
//   - KafkaQueue: one JSON message per job on a Kafka topic
//
// Retrying wraps any backend with resilience.Retry.
package recovery
