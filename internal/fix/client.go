package fix

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/quickfix/store/file"
	"github.com/quickfixgo/tag"
)

// Credentials sign the Deribit logon.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

func CredentialsFromEnv() Credentials {
	return Credentials{
		ClientID:     os.Getenv("DERIBIT_CLIENT_ID"),
		ClientSecret: os.Getenv("DERIBIT_CLIENT_SECRET"),
	}
}

// App implements quickfix.Application. Execution reports are handed to onExec.
type App struct {
	creds  Credentials
	onExec func(*quickfix.Message)

	mu       sync.RWMutex
	session  quickfix.SessionID
	loggedOn bool
}

func (a *App) OnCreate(id quickfix.SessionID) {}

func (a *App) OnLogon(id quickfix.SessionID) {
	a.mu.Lock()
	a.session, a.loggedOn = id, true
	a.mu.Unlock()
	log.Printf("[FIX] logon %s", id)
}

func (a *App) OnLogout(id quickfix.SessionID) {
	a.mu.Lock()
	a.loggedOn = false
	a.mu.Unlock()
	log.Printf("[FIX] logout %s", id)
}

// Session returns the active session, ok is false while logged out.
func (a *App) Session() (quickfix.SessionID, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session, a.loggedOn
}

func (a *App) ToApp(msg *quickfix.Message, id quickfix.SessionID) error { return nil }

// ToAdmin signs the logon: password = base64(sha256(timestamp.nonce + secret)).
func (a *App) ToAdmin(msg *quickfix.Message, id quickfix.SessionID) {
	msgType, _ := msg.Header.GetString(tag.MsgType)
	if msgType != "A" {
		return
	}
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	nonce := make([]byte, 32)
	_, _ = rand.Read(nonce)
	rawData := timestamp + "." + base64.StdEncoding.EncodeToString(nonce)

	h := sha256.Sum256([]byte(rawData + a.creds.ClientSecret))
	password := base64.StdEncoding.EncodeToString(h[:])

	msg.Body.SetField(tag.HeartBtInt, quickfix.FIXInt(30))
	msg.Body.SetField(tag.ResetSeqNumFlag, quickfix.FIXString("Y"))
	msg.Body.SetField(tag.RawDataLength, quickfix.FIXInt(len(rawData)))
	msg.Body.SetField(tag.RawData, quickfix.FIXString(rawData))
	msg.Body.SetField(tag.Username, quickfix.FIXString(a.creds.ClientID))
	msg.Body.SetField(tag.Password, quickfix.FIXString(password))
}

func (a *App) FromAdmin(msg *quickfix.Message, id quickfix.SessionID) quickfix.MessageRejectError {
	return nil
}

func (a *App) FromApp(msg *quickfix.Message, id quickfix.SessionID) quickfix.MessageRejectError {
	msgType, _ := msg.Header.GetString(tag.MsgType)
	switch msgType {
	case "8":
		if a.onExec != nil {
			a.onExec(msg)
		}
	case "j", "3":
		text, _ := msg.Body.GetString(tag.Text)
		log.Printf("[FIX] reject msgType=%s: %s", msgType, text)
	}
	return nil
}

// startInitiator reads a quickfix settings file and starts the session.
func startInitiator(cfgPath string, app *App) (*quickfix.Initiator, error) {
	absPath, err := filepath.Abs(cfgPath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open fix settings: %w", err)
	}
	defer f.Close()

	settings, err := quickfix.ParseSettings(f)
	if err != nil {
		return nil, fmt.Errorf("parse fix settings: %w", err)
	}
	initr, err := quickfix.NewInitiator(app, file.NewStoreFactory(settings), settings, quickfix.NewNullLogFactory())
	if err != nil {
		return nil, fmt.Errorf("fix initiator: %w", err)
	}
	if err := initr.Start(); err != nil {
		return nil, fmt.Errorf("fix start: %w", err)
	}
	return initr, nil
}
