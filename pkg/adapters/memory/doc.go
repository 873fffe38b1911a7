// Package memory provides in-process adapters: a blackboard store and a recording event sink.
package memory
