package dash

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/you/spreadwatch/internal/types"
	"go.uber.org/zap"
)

// Row is one venue's side of the current state.
type Row struct {
	Pair  string `json:"pair"`
	Venue string `json:"venue"`
	Bid   string `json:"bid"`
	Ask   string `json:"ask"`

	// Spread is this venue's bid minus the other venue's ask.
	Spread string `json:"spread"`

	TS int64 `json:"ts"`
}

type Alert struct {
	Direction string `json:"direction"`
	Buy       string `json:"buy"`
	Sell      string `json:"sell"`
	Profit    string `json:"profit"`
	TS        int64  `json:"ts"`
}

type View struct {
	Rows []Row  `json:"rows"`
	Last *Alert `json:"last_alert,omitempty"`
}

// Store holds value copies of what the monitor last produced.
type Store struct {
	mu   sync.RWMutex
	rows map[string]Row // key: pair|venue
	last *Alert
}

func NewStore() *Store { return &Store{rows: make(map[string]Row, 4)} }

func (s *Store) State(_ context.Context, st types.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := st.Ts.UnixMilli()
	pair := st.Pair.String()
	s.rows[pair+"|"+string(st.VenueA)] = Row{
		Pair:   pair,
		Venue:  string(st.VenueA),
		Bid:    st.A.Bid.String(),
		Ask:    st.A.Ask.String(),
		Spread: st.A.Bid.Sub(st.B.Ask).String(),
		TS:     ts,
	}
	s.rows[pair+"|"+string(st.VenueB)] = Row{
		Pair:   pair,
		Venue:  string(st.VenueB),
		Bid:    st.B.Bid.String(),
		Ask:    st.B.Ask.String(),
		Spread: st.B.Bid.Sub(st.A.Ask).String(),
		TS:     ts,
	}
	return nil
}

func (s *Store) Opportunity(_ context.Context, o types.Opportunity) error {
	s.mu.Lock()
	s.last = &Alert{
		Direction: string(o.Direction),
		Buy:       fmt.Sprintf("%s @ %s", o.BuyVenue, o.BuyPrice),
		Sell:      fmt.Sprintf("%s @ %s", o.SellVenue, o.SellPrice),
		Profit:    o.Profit.String(),
		TS:        o.Ts.UnixMilli(),
	}
	s.mu.Unlock()
	return nil
}

func (s *Store) View() View {
	s.mu.RLock()
	out := make([]Row, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	var last *Alert
	if s.last != nil {
		cp := *s.last
		last = &cp
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pair == out[j].Pair {
			return out[i].Venue < out[j].Venue
		}
		return out[i].Pair < out[j].Pair
	})
	return View{Rows: out, Last: last}
}

func Handler(s *Store) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/dash", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s.View())
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, indexHTML)
	})
	return withCORS(mux)
}

// StartHTTP serves the dashboard until ctx ends.
func StartHTTP(ctx context.Context, s *Store, addr string, log *zap.Logger) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(s),
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() { <-ctx.Done(); _ = srv.Close() }()

	log.Info("dash listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("dash http server error", zap.Error(err))
	}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const indexHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8"/>
  <meta name="viewport" content="width=device-width, initial-scale=1"/>
  <title>Spread Monitor</title>
  <style>
    :root { --bg:#f8fafc; --card:#fff; --muted:#6b7280; --chip:#e5e7eb; }
    body{margin:0;background:var(--bg);font:14px/1.4 ui-sans-serif,system-ui,-apple-system,Segoe UI,Roboto,Ubuntu; color:#111827;}
    .wrap{max-width:880px;margin:24px auto;padding:0 16px;}
    .hdr{display:flex;align-items:flex-end;justify-content:space-between;margin-bottom:12px;}
    .state{font-size:12px;padding:2px 8px;border-radius:999px;background:#d1fae5;color:#065f46;}
    table{width:100%;border-collapse:collapse;background:var(--card);border-radius:16px;overflow:hidden;box-shadow:0 10px 30px rgba(0,0,0,.06);}
    thead{background:#f3f4f6;} th,td{padding:12px 14px;text-align:left;} tbody tr{border-top:1px solid #f3f4f6;}
    .chip{display:inline-block;font-size:12px;padding:2px 8px;background:var(--chip);border-radius:999px;color:#374151;}
    .ok{color:#166534;} .bad{color:#991b1b;}
    .sub{color:var(--muted);font-size:12px;margin:0;}
  </style>
</head>
<body>
<div class="wrap">
  <div class="hdr">
    <h1 style="margin:0;font-size:22px;font-weight:600">Spread Monitor</h1>
    <div id="state" class="state">live</div>
  </div>
  <table>
    <thead><tr><th>Pair</th><th>Venue</th><th>Bid</th><th>Ask</th><th>Bid − other ask</th><th style="text-align:right">Updated</th></tr></thead>
    <tbody id="rows"></tbody>
  </table>
  <p id="last" class="sub" style="margin-top:8px"></p>
</div>
<script>
  function rowHTML(r){
    var pos = Number(r.spread) > 0;
    return '<tr>'
      + '<td><strong>' + r.pair + '</strong></td>'
      + '<td><span class="chip">' + r.venue + '</span></td>'
      + '<td>' + r.bid + '</td><td>' + r.ask + '</td>'
      + '<td class="' + (pos?'ok':'bad') + '">' + r.spread + '</td>'
      + '<td style="text-align:right;color:#6B7280;font-size:12px">' + new Date(r.ts).toLocaleTimeString() + '</td>'
      + '</tr>';
  }
  async function tick(){
    try{
      var res = await fetch('/api/dash', {cache:'no-store'});
      if(!res.ok) throw new Error('status '+res.status);
      var v = await res.json();
      document.getElementById('state').textContent = 'live';
      document.getElementById('rows').innerHTML = (v.rows||[]).map(rowHTML).join('');
      var a = v.last_alert;
      document.getElementById('last').textContent = a ? ('Last opportunity: buy ' + a.buy + ', sell ' + a.sell + ', profit ' + a.profit + ' at ' + new Date(a.ts).toLocaleTimeString()) : '';
    }catch(e){
      document.getElementById('state').textContent = 'offline';
    }
  }
  tick(); setInterval(tick, 1000);
</script>
</body>
</html>`
