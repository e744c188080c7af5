package smtp

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	netsmtp "net/smtp"
	"strconv"
	"time"

	"gopkg.in/gomail.v2"
)

const defaultTimeout = 10 * time.Second

// Dialer delivers gomail messages like gomail.Dialer, with every network
// operation of a delivery bounded by Timeout. gomail.Dialer only bounds the
// TCP dial, so a server that stops answering would block the send forever.
type Dialer struct {
	Host     string
	Port     int
	Username string
	Password string
	// SSL opens an implicit TLS connection (port 465). Otherwise STARTTLS is
	// used when the server offers it.
	SSL       bool
	TLSConfig *tls.Config
	LocalName string
	Timeout   time.Duration
}

// NewDialer returns a Dialer, with implicit TLS on port 465 as gomail does.
func NewDialer(host string, port int, username, password string, timeout time.Duration) *Dialer {
	return &Dialer{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		SSL:      port == 465,
		Timeout:  timeout,
	}
}

func (d *Dialer) timeout() time.Duration {
	if d.Timeout <= 0 {
		return defaultTimeout
	}
	return d.Timeout
}

func (d *Dialer) tlsConfig() *tls.Config {
	if d.TLSConfig != nil {
		return d.TLSConfig
	}
	return &tls.Config{ServerName: d.Host}
}

// DialAndSend opens a connection, sends the messages and closes it.
func (d *Dialer) DialAndSend(m ...*gomail.Message) error {
	addr := net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	conn, err := net.DialTimeout("tcp", addr, d.timeout())
	if err != nil {
		return err
	}
	if err = conn.SetDeadline(time.Now().Add(d.timeout())); err != nil {
		_ = conn.Close()
		return err
	}
	if d.SSL {
		conn = tls.Client(conn, d.tlsConfig())
	}

	c, err := netsmtp.NewClient(conn, d.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if err = d.handshake(c); err != nil {
		return err
	}

	err = gomail.Send(gomail.SendFunc(func(from string, to []string, msg io.WriterTo) error {
		return deliver(c, from, to, msg)
	}), m...)
	if err != nil {
		return err
	}
	return c.Quit()
}

func (d *Dialer) handshake(c *netsmtp.Client) error {
	if d.LocalName != "" {
		if err := c.Hello(d.LocalName); err != nil {
			return err
		}
	}
	if !d.SSL {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(d.tlsConfig()); err != nil {
				return err
			}
		}
	}
	if d.Username == "" {
		return nil
	}
	if ok, _ := c.Extension("AUTH"); !ok {
		return errors.New("smtp: server does not support authentication")
	}
	return c.Auth(netsmtp.PlainAuth("", d.Username, d.Password, d.Host))
}

func deliver(c *netsmtp.Client, from string, to []string, msg io.WriterTo) error {
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, recipient := range to {
		if err := c.Rcpt(recipient); err != nil {
			return fmt.Errorf("rcpt %s: %w", recipient, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err = msg.WriteTo(w); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
