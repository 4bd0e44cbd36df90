// Package domain contains entities without engine logic, just meta-data
// about rooms, gateways and sources.
package domain

type RoomName string

// RoomSpec describes one room and the openings it exposes, in gateway order.
type RoomSpec struct {
	Name     RoomName
	Gateways []Gateway
}
