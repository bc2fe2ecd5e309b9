// Package server serves a small HTML page for exercising presence by hand.
package server

import (
	"net/http"

	"go.uber.org/zap"
)

const testPage = `<!DOCTYPE html>
<html>
<head>
    <title>GoChat Presence Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #log, #users { border: 1px solid #ccc; padding: 10px; margin: 10px 0; background-color: #f9f9f9; }
        #log { height: 240px; overflow-y: scroll; }
        input[type="text"] { width: 200px; padding: 5px; margin-right: 10px; }
        button { padding: 5px 15px; background-color: #007cba; color: white; border: none; cursor: pointer; }
        .online { color: #155724; }
        .offline { color: #721c24; }
    </style>
</head>
<body>
    <h1>GoChat Presence Test</h1>

    <div>
        <input type="text" id="userId" placeholder="user id">
        <input type="text" id="email" placeholder="email">
        <button onclick="connect()">Connect</button>
        <button onclick="disconnect()">Disconnect</button>
    </div>
    <div>
        <input type="text" id="messageInput" placeholder="activity signal">
        <button onclick="sendMessage()">Send</button>
        <input type="text" id="likeInput" placeholder="message id">
        <button onclick="sendLike()">Like</button>
    </div>

    <h3>Users</h3>
    <div id="users"></div>
    <h3>Events</h3>
    <div id="log"></div>

    <script>
        let ws = null;
        const logDiv = document.getElementById('log');
        const usersDiv = document.getElementById('users');

        function log(text) {
            const line = document.createElement('div');
            line.textContent = text;
            logDiv.appendChild(line);
            logDiv.scrollTop = logDiv.scrollHeight;
        }

        function send(event, data) {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({event: event, data: data}));
            }
        }

        function renderUsers(users) {
            usersDiv.innerHTML = '';
            users.forEach(function(u) {
                const row = document.createElement('div');
                row.className = u.status;
                row.textContent = u.email + ' (' + u.userId + ') ' + u.status + ', last seen ' + u.lastSeen;
                usersDiv.appendChild(row);
            });
        }

        function connect() {
            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/ws');
            ws.onopen = function() {
                log('connected');
                send('register', {
                    userId: document.getElementById('userId').value,
                    email: document.getElementById('email').value
                });
            };
            ws.onmessage = function(event) {
                const frame = JSON.parse(event.data);
                if (frame.event === 'connectedUsers') {
                    renderUsers(frame.data);
                } else {
                    log(frame.event + ': ' + JSON.stringify(frame.data));
                }
            };
            ws.onclose = function() { log('connection closed'); ws = null; };
            ws.onerror = function() { log('connection error'); };
        }

        function disconnect() { if (ws) { ws.close(); } }

        function sendMessage() {
            const input = document.getElementById('messageInput');
            send('message', input.value);
            input.value = '';
        }

        function sendLike() {
            send('messageLiked', {messageId: document.getElementById('likeInput').value});
        }
    </script>
</body>
</html>`

// TestPageHandler serves an HTML page that registers a user over the
// WebSocket and renders the live connectedUsers list.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if _, err := w.Write([]byte(testPage)); err != nil {
		zap.L().Debug("error writing test page", zap.Error(err))
	}
}
