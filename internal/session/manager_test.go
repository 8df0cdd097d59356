package session_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/clinicops/clinic-console/internal"
	"github.com/clinicops/clinic-console/internal/session"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testUser() *session.User {
	return &session.User{
		ID:          "u-1",
		UserType:    session.UserTypeStaff,
		Email:       "user@clinic.test",
		FirstName:   "Nadia",
		LastName:    "Putri",
		Username:    "nadia.putri",
		IsActive:    true,
		Permissions: []string{"patients.read"},
		Roles:       []string{"front-desk"},
	}
}

// fakeAuthClient is a hand-rolled AuthClient double. The refresh call can be
// made to block on a channel so tests can interleave transitions.
type fakeAuthClient struct {
	mu sync.Mutex

	loginUser *session.User
	loginErr  error

	registerUser *session.User
	registerErr  error

	logoutErr error

	meUser *session.User
	meErr  error

	refreshUser    *session.User
	refreshErr     error
	refreshStarted chan struct{}
	refreshRelease chan struct{}

	logoutCalls int
}

func (f *fakeAuthClient) Login(ctx context.Context, email, password string) (*session.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginUser, f.loginErr
}

func (f *fakeAuthClient) Register(ctx context.Context, params session.RegisterParams) (*session.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registerUser, f.registerErr
}

func (f *fakeAuthClient) Logout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeAuthClient) Me(ctx context.Context) (*session.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.meUser, f.meErr
}

func (f *fakeAuthClient) Refresh(ctx context.Context) (*session.User, error) {
	f.mu.Lock()
	started, release := f.refreshStarted, f.refreshRelease
	f.mu.Unlock()

	if started != nil {
		close(started)
	}
	if release != nil {
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshUser, f.refreshErr
}

var _ = ginkgo.Describe("Manager", func() {
	var (
		ctx    context.Context
		client *fakeAuthClient
		store  *session.SQLiteStore
		mgr    *session.Manager
	)

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		client = &fakeAuthClient{}

		var err error
		store, err = session.OpenStore(":memory:", discardLogger())
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		mgr = session.NewManager(client, store, discardLogger())
	})

	ginkgo.Describe("initial state", func() {
		ginkgo.It("starts anonymous with initial loading set", func() {
			snap := mgr.Snapshot()
			gomega.Expect(snap.User).To(gomega.BeNil())
			gomega.Expect(snap.IsAuthenticated).To(gomega.BeFalse())
			gomega.Expect(snap.Loading).To(gomega.BeFalse())
			gomega.Expect(snap.InitialLoading).To(gomega.BeTrue())
			gomega.Expect(snap.Err).To(gomega.BeEmpty())
		})
	})

	ginkgo.Describe("Login", func() {
		ginkgo.Context("when the server accepts the credentials", func() {
			ginkgo.It("authenticates and persists the user", func() {
				client.loginUser = testUser()

				err := mgr.Login(ctx, "user@clinic.test", "correct")
				gomega.Expect(err).ToNot(gomega.HaveOccurred())

				snap := mgr.Snapshot()
				gomega.Expect(snap.IsAuthenticated).To(gomega.BeTrue())
				gomega.Expect(snap.User.Email).To(gomega.Equal("user@clinic.test"))
				gomega.Expect(snap.Loading).To(gomega.BeFalse())
				gomega.Expect(snap.Err).To(gomega.BeEmpty())

				persisted, err := store.LoadUser(ctx)
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(persisted).To(gomega.Equal(client.loginUser))
			})
		})

		ginkgo.Context("when the server rejects the credentials", func() {
			ginkgo.It("clears the session and surfaces the server message", func() {
				client.loginErr = internal.NewUnauthorizedError("Invalid credentials", internal.ErrCodeInvalidCredentials)

				err := mgr.Login(ctx, "a@b.com", "wrong")
				gomega.Expect(err).To(gomega.HaveOccurred())

				snap := mgr.Snapshot()
				gomega.Expect(snap.User).To(gomega.BeNil())
				gomega.Expect(snap.IsAuthenticated).To(gomega.BeFalse())
				gomega.Expect(snap.Err).To(gomega.Equal("Invalid credentials"))
				gomega.Expect(snap.Loading).To(gomega.BeFalse())
			})

			ginkgo.It("clears any previously persisted user", func() {
				client.loginUser = testUser()
				gomega.Expect(mgr.Login(ctx, "user@clinic.test", "correct")).To(gomega.Succeed())

				client.loginUser = nil
				client.loginErr = internal.NewUnauthorizedError("Invalid credentials", internal.ErrCodeInvalidCredentials)
				_ = mgr.Login(ctx, "user@clinic.test", "wrong")

				persisted, err := store.LoadUser(ctx)
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(persisted).To(gomega.BeNil())
			})
		})
	})

	ginkgo.Describe("Register", func() {
		ginkgo.It("authenticates and persists on success", func() {
			client.registerUser = testUser()

			err := mgr.Register(ctx, session.RegisterParams{
				Email:     "user@clinic.test",
				Password:  "secret",
				FirstName: "Nadia",
				LastName:  "Putri",
			})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			snap := mgr.Snapshot()
			gomega.Expect(snap.IsAuthenticated).To(gomega.BeTrue())

			persisted, err := store.LoadUser(ctx)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(persisted.Email).To(gomega.Equal("user@clinic.test"))
		})

		ginkgo.It("keeps the prior session when registration fails", func() {
			client.loginUser = testUser()
			gomega.Expect(mgr.Login(ctx, "user@clinic.test", "correct")).To(gomega.Succeed())

			client.registerErr = internal.NewAPIError(409, "account already exists", internal.ErrCodeRequestFailed)
			err := mgr.Register(ctx, session.RegisterParams{Email: "other@clinic.test", Password: "x"})
			gomega.Expect(err).To(gomega.HaveOccurred())

			snap := mgr.Snapshot()
			gomega.Expect(snap.IsAuthenticated).To(gomega.BeTrue())
			gomega.Expect(snap.User.Email).To(gomega.Equal("user@clinic.test"))
			gomega.Expect(snap.Err).To(gomega.Equal("account already exists"))
		})

		ginkgo.It("rejects an empty email before any network call", func() {
			err := mgr.Register(ctx, session.RegisterParams{Password: "x"})
			gomega.Expect(err).To(gomega.HaveOccurred())
			gomega.Expect(err.Error()).To(gomega.ContainSubstring("email is required"))
		})
	})

	ginkgo.Describe("Logout", func() {
		ginkgo.BeforeEach(func() {
			client.loginUser = testUser()
			gomega.Expect(mgr.Login(ctx, "user@clinic.test", "correct")).To(gomega.Succeed())
		})

		ginkgo.It("clears state and storage", func() {
			mgr.Logout(ctx)

			snap := mgr.Snapshot()
			gomega.Expect(snap.User).To(gomega.BeNil())
			gomega.Expect(snap.IsAuthenticated).To(gomega.BeFalse())
			gomega.Expect(snap.Err).To(gomega.BeEmpty())

			persisted, err := store.LoadUser(ctx)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(persisted).To(gomega.BeNil())
			gomega.Expect(client.logoutCalls).To(gomega.Equal(1))
		})

		ginkgo.It("clears locally even when the remote call fails", func() {
			client.logoutErr = internal.NewTransportError("request failed, please try again", nil)

			mgr.Logout(ctx)

			snap := mgr.Snapshot()
			gomega.Expect(snap.User).To(gomega.BeNil())
			gomega.Expect(snap.IsAuthenticated).To(gomega.BeFalse())

			persisted, err := store.LoadUser(ctx)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(persisted).To(gomega.BeNil())
		})
	})

	ginkgo.Describe("CheckAuth", func() {
		ginkgo.It("authenticates when the server knows the session", func() {
			client.meUser = testUser()

			gomega.Expect(mgr.CheckAuth(ctx)).To(gomega.Succeed())

			snap := mgr.Snapshot()
			gomega.Expect(snap.IsAuthenticated).To(gomega.BeTrue())
			gomega.Expect(snap.Err).To(gomega.BeEmpty())
		})

		ginkgo.It("treats a 401 as the expected no-session outcome, not an error", func() {
			client.meErr = internal.NewUnauthorizedError("not authenticated", internal.ErrCodeNotAuthenticated)

			err := mgr.CheckAuth(ctx)
			gomega.Expect(err).To(gomega.HaveOccurred())

			snap := mgr.Snapshot()
			gomega.Expect(snap.IsAuthenticated).To(gomega.BeFalse())
			gomega.Expect(snap.Err).To(gomega.BeEmpty())
		})

		ginkgo.It("records any other failure as an error", func() {
			client.meErr = internal.NewAPIError(500, "server exploded", internal.ErrCodeRequestFailed)

			err := mgr.CheckAuth(ctx)
			gomega.Expect(err).To(gomega.HaveOccurred())

			snap := mgr.Snapshot()
			gomega.Expect(snap.IsAuthenticated).To(gomega.BeFalse())
			gomega.Expect(snap.Err).To(gomega.Equal("server exploded"))
		})
	})

	ginkgo.Describe("RefreshToken", func() {
		ginkgo.BeforeEach(func() {
			client.loginUser = testUser()
			gomega.Expect(mgr.Login(ctx, "user@clinic.test", "correct")).To(gomega.Succeed())
		})

		ginkgo.It("updates the user when the response carries one", func() {
			updated := testUser()
			updated.FirstName = "Renamed"
			client.refreshUser = updated

			gomega.Expect(mgr.RefreshToken(ctx)).To(gomega.Succeed())
			gomega.Expect(mgr.Snapshot().User.FirstName).To(gomega.Equal("Renamed"))
		})

		ginkgo.It("keeps the current identity when the response omits the user", func() {
			client.refreshUser = nil

			gomega.Expect(mgr.RefreshToken(ctx)).To(gomega.Succeed())

			snap := mgr.Snapshot()
			gomega.Expect(snap.IsAuthenticated).To(gomega.BeTrue())
			gomega.Expect(snap.User.Email).To(gomega.Equal("user@clinic.test"))
		})

		ginkgo.It("treats a 401 as the expected no-session outcome, not an error", func() {
			client.refreshErr = internal.NewUnauthorizedError("not authenticated", internal.ErrCodeNotAuthenticated)

			err := mgr.RefreshToken(ctx)
			gomega.Expect(err).To(gomega.HaveOccurred())

			snap := mgr.Snapshot()
			gomega.Expect(snap.User).To(gomega.BeNil())
			gomega.Expect(snap.IsAuthenticated).To(gomega.BeFalse())
			gomega.Expect(snap.Err).To(gomega.BeEmpty())

			persisted, err := store.LoadUser(ctx)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(persisted).To(gomega.BeNil())
		})

		ginkgo.It("records any other failure as an error and clears the session", func() {
			client.refreshErr = internal.NewAPIError(500, "server exploded", internal.ErrCodeRequestFailed)

			err := mgr.RefreshToken(ctx)
			gomega.Expect(err).To(gomega.HaveOccurred())

			snap := mgr.Snapshot()
			gomega.Expect(snap.User).To(gomega.BeNil())
			gomega.Expect(snap.IsAuthenticated).To(gomega.BeFalse())
			gomega.Expect(snap.Err).To(gomega.Equal("server exploded"))

			persisted, err := store.LoadUser(ctx)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(persisted).To(gomega.BeNil())
		})

		ginkgo.It("cannot resurrect a session that was logged out while it was in flight", func() {
			client.mu.Lock()
			client.refreshUser = testUser()
			client.refreshStarted = make(chan struct{})
			client.refreshRelease = make(chan struct{})
			client.mu.Unlock()

			done := make(chan struct{})
			go func() {
				defer close(done)
				_ = mgr.RefreshToken(ctx)
			}()

			<-client.refreshStarted
			mgr.Logout(ctx)
			close(client.refreshRelease)
			gomega.Eventually(done, time.Second).Should(gomega.BeClosed())

			snap := mgr.Snapshot()
			gomega.Expect(snap.User).To(gomega.BeNil())
			gomega.Expect(snap.IsAuthenticated).To(gomega.BeFalse())

			persisted, err := store.LoadUser(ctx)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(persisted).To(gomega.BeNil())
		})
	})

	ginkgo.Describe("LoadFromStorage", func() {
		ginkgo.It("restores a valid persisted user", func() {
			gomega.Expect(store.SaveUser(ctx, testUser())).To(gomega.Succeed())

			mgr.LoadFromStorage(ctx)

			snap := mgr.Snapshot()
			gomega.Expect(snap.IsAuthenticated).To(gomega.BeTrue())
			gomega.Expect(snap.User.Email).To(gomega.Equal("user@clinic.test"))
			gomega.Expect(snap.InitialLoading).To(gomega.BeFalse())
		})

		ginkgo.It("finishes initial loading even when the slot is empty", func() {
			mgr.LoadFromStorage(ctx)

			snap := mgr.Snapshot()
			gomega.Expect(snap.User).To(gomega.BeNil())
			gomega.Expect(snap.IsAuthenticated).To(gomega.BeFalse())
			gomega.Expect(snap.InitialLoading).To(gomega.BeFalse())
		})

		ginkgo.It("runs the restore exactly once per process", func() {
			mgr.LoadFromStorage(ctx)
			gomega.Expect(mgr.Snapshot().IsAuthenticated).To(gomega.BeFalse())

			// A user persisted after the first restore must not be picked up.
			gomega.Expect(store.SaveUser(ctx, testUser())).To(gomega.Succeed())
			mgr.LoadFromStorage(ctx)
			gomega.Expect(mgr.Snapshot().IsAuthenticated).To(gomega.BeFalse())
		})
	})

	ginkgo.Describe("UpdateUser", func() {
		ginkgo.It("merges only the targeted fields and re-persists", func() {
			client.loginUser = testUser()
			gomega.Expect(mgr.Login(ctx, "user@clinic.test", "correct")).To(gomega.Succeed())

			newName := "New"
			mgr.UpdateUser(ctx, session.UserPatch{FirstName: &newName})

			snap := mgr.Snapshot()
			gomega.Expect(snap.User.FirstName).To(gomega.Equal("New"))
			gomega.Expect(snap.User.LastName).To(gomega.Equal("Putri"))
			gomega.Expect(snap.User.Email).To(gomega.Equal("user@clinic.test"))
			gomega.Expect(snap.IsAuthenticated).To(gomega.BeTrue())

			persisted, err := store.LoadUser(ctx)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(persisted.FirstName).To(gomega.Equal("New"))
			gomega.Expect(persisted.LastName).To(gomega.Equal("Putri"))
		})

		ginkgo.It("is a no-op when nobody is signed in", func() {
			newName := "New"
			mgr.UpdateUser(ctx, session.UserPatch{FirstName: &newName})
			gomega.Expect(mgr.Snapshot().User).To(gomega.BeNil())
		})
	})

	ginkgo.Describe("SetUser", func() {
		ginkgo.It("installs the user as authenticated and persists it", func() {
			mgr.SetUser(ctx, testUser())

			snap := mgr.Snapshot()
			gomega.Expect(snap.IsAuthenticated).To(gomega.BeTrue())
			gomega.Expect(snap.Err).To(gomega.BeEmpty())

			persisted, err := store.LoadUser(ctx)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(persisted.ID).To(gomega.Equal("u-1"))
		})
	})

	ginkgo.Describe("ClearError", func() {
		ginkgo.It("drops a recorded error", func() {
			client.loginErr = internal.NewUnauthorizedError("Invalid credentials", internal.ErrCodeInvalidCredentials)
			_ = mgr.Login(ctx, "a@b.com", "wrong")
			gomega.Expect(mgr.Snapshot().Err).ToNot(gomega.BeEmpty())

			mgr.ClearError()
			gomega.Expect(mgr.Snapshot().Err).To(gomega.BeEmpty())
		})

		ginkgo.It("is idempotent when no error is set", func() {
			before := mgr.Snapshot()
			mgr.ClearError()
			gomega.Expect(mgr.Snapshot()).To(gomega.Equal(before))
		})
	})
})
