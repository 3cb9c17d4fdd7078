package controller

import (
	"github.com/watchparty/server/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.Use(c.loggingWSMw)

	mux.Handle("setPaused", c.handleSetPaused)
	mux.Handle("setLoop", c.handleSetLoop)
	mux.Handle("setProgress", c.handleSetProgress)
	mux.Handle("setPlaybackRate", c.handleSetPlaybackRate)
	mux.Handle("seek", c.handleSeek)
	mux.Handle("playUrl", c.handlePlayUrl)
	mux.Handle("playAgain", c.handlePlayAgain)
	mux.Handle("playEnded", c.handlePlayEnded)
	mux.Handle("playItemFromPlaylist", c.handlePlayItemFromPlaylist)
	mux.Handle("updatePlaylist", c.handleUpdatePlaylist)
	mux.Handle("updateUser", c.handleUpdateUser)
	mux.Handle("fetch", c.handleFetch)
	mux.Handle("sendChatMessage", c.handleSendChatMessage)
	mux.Handle("requestChatHistory", c.handleRequestChatHistory)
	mux.Handle("setTyping", c.handleSetTyping)

	return mux
}
