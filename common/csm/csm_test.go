package csm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"cortx-e2e/common/cterror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCSM struct {
	mu       sync.Mutex
	accounts map[string]S3Account
	logins   int
	// expire makes the next authenticated request fail with 401
	expire bool
}

func (f *fakeCSM) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(loginPath, func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds["password"] != "Seagate@1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error_code": 4010}`))
			return
		}
		f.mu.Lock()
		f.logins++
		f.mu.Unlock()
		w.Header().Set("Authorization", "Bearer token-1")
	})
	auth := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			expired := f.expire
			f.expire = false
			f.mu.Unlock()
			if expired || r.Header.Get("Authorization") != "Bearer token-1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next(w, r)
		}
	}
	mux.HandleFunc(s3AccountsPath, auth(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch r.Method {
		case http.MethodPost:
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			name := body["account_name"]
			if _, ok := f.accounts[name]; ok {
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte("account exists"))
				return
			}
			acc := S3Account{AccountName: name, AccountEmail: body["account_email"], AccessKey: "AK-" + name, SecretKey: "SK"}
			f.accounts[name] = acc
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(acc)
		case http.MethodGet:
			var list []S3Account
			for _, acc := range f.accounts {
				list = append(list, S3Account{AccountName: acc.AccountName, AccountEmail: acc.AccountEmail})
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"s3_accounts": list})
		}
	}))
	mux.HandleFunc(s3AccountsPath+"/", auth(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		name := r.URL.Path[len(s3AccountsPath)+1:]
		if _, ok := f.accounts[name]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		delete(f.accounts, name)
	}))
	mux.HandleFunc(capacityPath, auth(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"size": 1000, "used": 250, "avail": 750, "used_percent": 25.0, "unit": "BYTES"}`))
	}))
	return mux
}

func newTestClient(t *testing.T, password string) (*Client, *fakeCSM) {
	fake := &fakeCSM{accounts: map[string]S3Account{}}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	c := New(srv.URL+"/", "cortxadmin", password, false)
	return c, fake
}

func TestLogin(t *testing.T) {
	c, _ := newTestClient(t, "wrong")
	err := c.Login(context.Background())
	require.Error(t, err)
	assert.True(t, cterror.HasCode(err, cterror.CSMLoginError))

	_, err = c.ListS3Accounts(context.Background())
	assert.True(t, cterror.HasCode(err, cterror.CSMLoginError))
}

func TestS3Accounts(t *testing.T) {
	c, fake := newTestClient(t, "Seagate@1")
	ctx := context.Background()

	acc, err := c.CreateS3Account(ctx, "s3user1", "s3user1@seagate.com", "Pass@123")
	require.NoError(t, err)
	assert.Equal(t, "AK-s3user1", acc.AccessKey)

	_, err = c.CreateS3Account(ctx, "s3user1", "s3user1@seagate.com", "Pass@123")
	require.Error(t, err)
	assert.True(t, cterror.HasCode(err, cterror.CSMRestError))
	assert.Contains(t, err.Error(), "409")

	accounts, err := c.ListS3Accounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "s3user1", accounts[0].AccountName)

	require.NoError(t, c.DeleteS3Account(ctx, "s3user1"))
	err = c.DeleteS3Account(ctx, "s3user1")
	assert.True(t, cterror.HasCode(err, cterror.CSMRestError))
	assert.Equal(t, 1, fake.logins)
}

func TestReloginOnExpiredSession(t *testing.T) {
	c, fake := newTestClient(t, "Seagate@1")
	ctx := context.Background()
	require.NoError(t, c.Login(ctx))
	fake.mu.Lock()
	fake.expire = true
	fake.mu.Unlock()

	capacity, err := c.GetCapacity(ctx)
	require.NoError(t, err)
	assert.Equal(t, Capacity{Size: 1000, Used: 250, Avail: 750, UsedPercent: 25, Unit: "BYTES"}, capacity)
	assert.Equal(t, 2, fake.logins)
}

func TestFlood(t *testing.T) {
	var calls int32
	hist, err := Flood(context.Background(), 4, 50, func(ctx context.Context) (int, error) {
		if atomic.AddInt32(&calls, 1)%5 == 0 {
			return http.StatusServiceUnavailable, nil
		}
		return http.StatusOK, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(50), atomic.LoadInt32(&calls))
	assert.Equal(t, map[int]int{http.StatusOK: 40, http.StatusServiceUnavailable: 10}, hist)

	_, err = Flood(context.Background(), 0, 1, nil)
	assert.True(t, cterror.HasCode(err, cterror.InvalidArgs))
}

func TestFloodPath(t *testing.T) {
	c, _ := newTestClient(t, "Seagate@1")
	hist, err := c.FloodPath(context.Background(), 3, 12, http.MethodGet, capacityPath)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{http.StatusOK: 12}, hist)
}
