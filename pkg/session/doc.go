/*
Package session manages many independent agents by name.

Each agent is its own actor with its own tree and blackboard; the Manager only
guards the name-to-agent map and serializes start and stop for the same name.
Agents that stop on their own (context cancellation) are dropped from the map.
*/
package session
