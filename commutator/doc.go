/*
	Package commutator implements bidirectional RPC over a duplex channel that
	can only carry opaque strings, such as cross-window messaging or a
	websocket shared with other traffic.

	Every message is an envelope of the form "<serviceID>::<json>". Messages
	without the endpoint's prefix belong to someone else and are ignored.

	Commutator is one endpoint. It is both a caller and a callee: Call sends a
	request and waits for the response carrying the same correlation id;
	Expose registers a handler that the remote endpoint can invoke by name.
	Handler failures cross the boundary as an ErrorPayload holding every
	field of the error, and come out on the caller side as a *RemoteError.

	Channel is the transport. Pipe, StreamChannel and the ws subpackages
	provide implementations; the Commutator does not care which side
	initiated the connection.

	When a handler is invoked, its context carries the Commutator that
	received the request, available through CtxCommutator(ctx), which can be
	used to call back into the remote endpoint.
*/
package commutator
