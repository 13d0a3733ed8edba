package message

import "gopkg.in/yaml.v3"

// wireMessage is the on-the-wire shape serialized with yaml.v3, mirroring
// the underscore-prefixed field names the Python original dumps via its
// YAMLObject state.
type wireMessage struct {
	Message         string `yaml:"_message"`
	Sender          string `yaml:"_sender,omitempty"`
	MessageType     string `yaml:"_message_type"`
	ChatID          string `yaml:"_chat_id,omitempty"`
	ToolID          string `yaml:"_tool_id,omitempty"`
	ContextName     string `yaml:"_context_name"`
	RouteResponseTo string `yaml:"_route_response_to,omitempty"`
}

// MarshalYAML implements yaml.Marshaler.
func (m Message) MarshalYAML() (interface{}, error) {
	return wireMessage{
		Message:         m.payload,
		Sender:          m.sender,
		MessageType:     string(m.messageType),
		ChatID:          m.chatID,
		ToolID:          m.toolID,
		ContextName:     m.contextName,
		RouteResponseTo: m.routeResponseTo,
	}, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *Message) UnmarshalYAML(value *yaml.Node) error {
	var w wireMessage
	if err := value.Decode(&w); err != nil {
		return err
	}
	m.payload = w.Message
	m.sender = w.Sender
	m.messageType = Type(w.MessageType)
	m.chatID = w.ChatID
	m.toolID = w.ToolID
	m.contextName = w.ContextName
	if m.contextName == "" {
		m.contextName = DefaultContextName
	}
	m.routeResponseTo = w.RouteResponseTo
	return nil
}

// Serialize renders m as the transport's text framing.
func Serialize(m Message) ([]byte, error) {
	return yaml.Marshal(m)
}

// Deserialize parses the transport's text framing back into a Message.
func Deserialize(data []byte) (Message, error) {
	var m Message
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Message{}, err
	}
	return m, nil
}
