// Package gameserver drives running games: the fixed-interval scheduler that
// steps physics and publishes state, and the dispatcher that turns client
// events into session operations.
package gameserver
