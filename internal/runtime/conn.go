package runtime

import (
	"net"
	"time"
)

// connManager owns the single TCP connection to the collector. It only dials
// when asked; reconnection policy lives in the transport. All methods assume
// the caller holds the transport lock.
type connManager struct {
	addr         string
	dialTimeout  time.Duration
	writeTimeout time.Duration
	conn         net.Conn
}

func newConnManager(addr string, dialTimeout, writeTimeout time.Duration) *connManager {
	return &connManager{
		addr:         addr,
		dialTimeout:  dialTimeout,
		writeTimeout: writeTimeout,
	}
}

func (c *connManager) connected() bool { return c.conn != nil }

// dial establishes a fresh connection, closing any half-dead previous one.
func (c *connManager) dial() error {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}

	conn, err := net.DialTimeout("tcp", c.addr, c.dialTimeout)
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}

// write sends one framed payload. Any error tears the connection down so the
// next attempt starts from a clean dial.
func (c *connManager) write(payload []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		c.close()
		return err
	}
	if _, err := c.conn.Write(payload); err != nil {
		c.close()
		return err
	}
	return nil
}

func (c *connManager) close() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}
