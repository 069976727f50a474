package ws

type IHub interface {
	Run()
	RegisterClient(client *UserClient)
	UnregisterClient(client *UserClient)
	JoinRoom(conversationId, userId string)
	LeaveRoom(conversationId, userId string)
	RoomMembers(conversationId string) []string
	SendToClient(userID string, message []byte)
	BroadcastRoom(conversationId, exceptUserId string, message []byte)
	GetClientCount() int
	SetOnClientUnregister(callback func(client *UserClient) error)
}
