package session_test

import (
	"context"
	"net/http"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/clinicops/clinic-console/internal/apitest"
	"github.com/clinicops/clinic-console/internal/session"
	"github.com/clinicops/clinic-console/internal/transport"
)

// These specs run the facade against the stub API over real HTTP, with real
// cookies and a real sqlite-backed store.
var _ = ginkgo.Describe("Facade", func() {
	var (
		ctx       context.Context
		server    *apitest.Server
		store     *session.SQLiteStore
		facade    *session.Facade
		redirects int
	)

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		server = apitest.New()

		var err error
		store, err = session.OpenStore(":memory:", discardLogger())
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		client, err := transport.NewClient(transport.Config{BaseURL: server.URL()}, discardLogger())
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		manager := session.NewManager(client, store, discardLogger())
		redirects = 0
		facade = session.NewFacade(manager, session.NavigatorFunc(func() { redirects++ }), discardLogger())
	})

	ginkgo.AfterEach(func() {
		server.Close()
	})

	ginkgo.Describe("Signin", func() {
		ginkgo.It("authenticates against the live stub and persists the user", func() {
			gomega.Expect(facade.Signin(ctx, apitest.AdminEmail, apitest.AdminPassword)).To(gomega.Succeed())

			snap := facade.Snapshot()
			gomega.Expect(snap.IsAuthenticated).To(gomega.BeTrue())
			gomega.Expect(snap.User.Email).To(gomega.Equal(apitest.AdminEmail))
			gomega.Expect(snap.Err).To(gomega.BeEmpty())

			persisted, err := store.LoadUser(ctx)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(persisted).To(gomega.Equal(snap.User))
		})

		ginkgo.It("surfaces the server's message on bad credentials", func() {
			err := facade.Signin(ctx, "a@b.com", "wrong")
			gomega.Expect(err).To(gomega.HaveOccurred())

			snap := facade.Snapshot()
			gomega.Expect(snap.User).To(gomega.BeNil())
			gomega.Expect(snap.IsAuthenticated).To(gomega.BeFalse())
			gomega.Expect(snap.Err).To(gomega.Equal("Invalid credentials"))
			gomega.Expect(snap.Loading).To(gomega.BeFalse())
		})
	})

	ginkgo.Describe("Signup", func() {
		ginkgo.It("creates the account, signs in and persists", func() {
			err := facade.Signup(ctx, session.RegisterParams{
				Email:     "a@b.com",
				Password:  "secret",
				FirstName: "A",
				LastName:  "B",
			})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			snap := facade.Snapshot()
			gomega.Expect(snap.IsAuthenticated).To(gomega.BeTrue())
			gomega.Expect(snap.User.FirstName).To(gomega.Equal("A"))

			persisted, err := store.LoadUser(ctx)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(persisted).To(gomega.Equal(snap.User))
		})
	})

	ginkgo.Describe("Signout", func() {
		ginkgo.BeforeEach(func() {
			gomega.Expect(facade.Signin(ctx, apitest.AdminEmail, apitest.AdminPassword)).To(gomega.Succeed())
		})

		ginkgo.It("clears everything and redirects to login", func() {
			facade.Signout(ctx)

			snap := facade.Snapshot()
			gomega.Expect(snap.User).To(gomega.BeNil())
			gomega.Expect(snap.IsAuthenticated).To(gomega.BeFalse())
			gomega.Expect(redirects).To(gomega.Equal(1))
			gomega.Expect(server.Count().Logout).To(gomega.Equal(1))

			persisted, err := store.LoadUser(ctx)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(persisted).To(gomega.BeNil())
		})

		ginkgo.It("still clears and redirects when the remote logout fails", func() {
			server.FailNextWith(http.StatusInternalServerError, "logout exploded")

			facade.Signout(ctx)

			snap := facade.Snapshot()
			gomega.Expect(snap.User).To(gomega.BeNil())
			gomega.Expect(snap.IsAuthenticated).To(gomega.BeFalse())
			gomega.Expect(redirects).To(gomega.Equal(1))

			persisted, err := store.LoadUser(ctx)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(persisted).To(gomega.BeNil())
		})
	})

	ginkgo.Describe("VerifyAuth", func() {
		ginkgo.It("succeeds for a live session", func() {
			gomega.Expect(facade.Signin(ctx, apitest.AdminEmail, apitest.AdminPassword)).To(gomega.Succeed())
			gomega.Expect(facade.VerifyAuth(ctx)).To(gomega.Succeed())
			gomega.Expect(facade.IsAuthenticated()).To(gomega.BeTrue())
		})

		ginkgo.It("leaves no error behind for a fresh client with no session", func() {
			err := facade.VerifyAuth(ctx)
			gomega.Expect(err).To(gomega.HaveOccurred())

			snap := facade.Snapshot()
			gomega.Expect(snap.IsAuthenticated).To(gomega.BeFalse())
			gomega.Expect(snap.Err).To(gomega.BeEmpty())
		})
	})

	ginkgo.Describe("RefreshToken", func() {
		ginkgo.It("keeps the identity when the server omits the user payload", func() {
			gomega.Expect(facade.Signin(ctx, apitest.AdminEmail, apitest.AdminPassword)).To(gomega.Succeed())
			server.OmitUserOnRefresh(true)

			gomega.Expect(facade.RefreshToken(ctx)).To(gomega.Succeed())

			snap := facade.Snapshot()
			gomega.Expect(snap.IsAuthenticated).To(gomega.BeTrue())
			gomega.Expect(snap.User.Email).To(gomega.Equal(apitest.AdminEmail))
		})

		ginkgo.It("clears the session silently when no refresh cookie exists", func() {
			err := facade.RefreshToken(ctx)
			gomega.Expect(err).To(gomega.HaveOccurred())

			snap := facade.Snapshot()
			gomega.Expect(snap.IsAuthenticated).To(gomega.BeFalse())
			gomega.Expect(snap.User).To(gomega.BeNil())
			gomega.Expect(snap.Err).To(gomega.BeEmpty())
		})
	})

	ginkgo.Describe("Restore", func() {
		ginkgo.It("restores a persisted user and finishes initial loading", func() {
			gomega.Expect(store.SaveUser(ctx, testUser())).To(gomega.Succeed())

			facade.Restore(ctx)

			snap := facade.Snapshot()
			gomega.Expect(snap.IsAuthenticated).To(gomega.BeTrue())
			gomega.Expect(snap.User.Email).To(gomega.Equal("user@clinic.test"))
			gomega.Expect(snap.InitialLoading).To(gomega.BeFalse())
		})

		ginkgo.It("recovers from a corrupt persisted slot", func() {
			dsn := "file:facaderestore?mode=memory&cache=shared"
			corruptStore, err := session.OpenStore(dsn, discardLogger())
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
				Logger: gormlogger.Default.LogMode(gormlogger.Silent),
			})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(db.Save(&rawSlot{Key: "session.user", Value: "{broken", UpdatedAt: time.Now()}).Error).To(gomega.Succeed())

			client, err := transport.NewClient(transport.Config{BaseURL: server.URL()}, discardLogger())
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			manager := session.NewManager(client, corruptStore, discardLogger())

			manager.LoadFromStorage(ctx)

			snap := manager.Snapshot()
			gomega.Expect(snap.User).To(gomega.BeNil())
			gomega.Expect(snap.IsAuthenticated).To(gomega.BeFalse())
			gomega.Expect(snap.InitialLoading).To(gomega.BeFalse())

			// Corrupt entry was deleted during the restore attempt.
			persisted, err := corruptStore.LoadUser(ctx)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(persisted).To(gomega.BeNil())
		})
	})

	ginkgo.Describe("predicates", func() {
		ginkgo.It("answers from the signed-in user", func() {
			gomega.Expect(facade.Signin(ctx, apitest.AdminEmail, apitest.AdminPassword)).To(gomega.Succeed())

			gomega.Expect(facade.HasPermission("patients.read")).To(gomega.BeTrue())
			gomega.Expect(facade.HasPermission("nonexistent")).To(gomega.BeFalse())
			gomega.Expect(facade.HasRole("admin")).To(gomega.BeTrue())
			gomega.Expect(facade.IsUserType(session.UserTypeManager)).To(gomega.BeTrue())
			gomega.Expect(facade.FullName()).To(gomega.Equal("Ada Suryani"))
		})

		ginkgo.It("returns safe defaults when nobody is signed in", func() {
			gomega.Expect(facade.HasPermission("patients.read")).To(gomega.BeFalse())
			gomega.Expect(facade.HasRole("admin")).To(gomega.BeFalse())
			gomega.Expect(facade.IsUserType(session.UserTypeStaff)).To(gomega.BeFalse())
			gomega.Expect(facade.FullName()).To(gomega.BeEmpty())
		})
	})
})
