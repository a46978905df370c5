// Пакет logger предоставляет обёртку для публикации аудит-событий в NATS
package logger

// Conn определяет минимальный интерфейс NATS-подключения.
// Любая реализация (например *nats.Conn) должна предоставлять метод Publish:
// subject — тема, data — байтовый массив сообщения.
type Conn interface {
	Publish(subject string, data []byte) error
}

// NATSClient хранит Conn и тему subject для публикации событий
type NATSClient struct {
	conn    Conn
	subject string
}

// NewClient создаёт новый NATSClient, связывая Conn и subject
func NewClient(conn Conn, subject string) *NATSClient {
	return &NATSClient{conn: conn, subject: subject}
}

// PublishLog отправляет данные в указанный subject в NATS
// Возвращает ошибку, если публикация не удалась
func (n *NATSClient) PublishLog(data []byte) error {
	return n.conn.Publish(n.subject, data)
}
