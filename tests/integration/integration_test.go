package integration_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"
	"github.com/onsi/gomega/gexec"
)

func writeCorpus(dir, name, body string) {
	Expect(os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644)).To(Succeed())
}

var _ = Describe("cctr CLI", func() {
	var (
		tempDir string
		session *gexec.Session
		err     error
	)

	BeforeEach(func() {
		tempDir, err = os.MkdirTemp("", "cctr-cli-test")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if session != nil {
			session.Terminate().Wait()
		}
		os.RemoveAll(tempDir)
	})

	Describe("a passing corpus", func() {
		It("reports a dot per test and exits zero", func() {
			writeCorpus(tempDir, "a.txt", "===\nhello\n===\necho hi\n---\nhi\n")

			cmd := exec.Command(cctrPath, tempDir)
			session, err = gexec.Start(cmd, GinkgoWriter, GinkgoWriter)
			Expect(err).NotTo(HaveOccurred())

			Eventually(session, 10*time.Second).Should(gexec.Exit(0))
			Expect(session.Out).To(gbytes.Say(`\.`))
		})
	})

	Describe("a failing corpus", func() {
		It("exits 1 and marks the test failed", func() {
			writeCorpus(tempDir, "a.txt", "===\nwrong\n===\necho hi\n---\nbye\n")

			cmd := exec.Command(cctrPath, tempDir)
			session, err = gexec.Start(cmd, GinkgoWriter, GinkgoWriter)
			Expect(err).NotTo(HaveOccurred())

			Eventually(session, 10*time.Second).Should(gexec.Exit(1))
			Expect(session.Out).To(gbytes.Say("F"))
		})
	})

	Describe("-l / --list", func() {
		It("lists discovered tests without executing them", func() {
			writeCorpus(tempDir, "a.txt", "===\nnever run\n===\nfalse\n---\nnever\n")

			cmd := exec.Command(cctrPath, "-l", tempDir)
			session, err = gexec.Start(cmd, GinkgoWriter, GinkgoWriter)
			Expect(err).NotTo(HaveOccurred())

			Eventually(session, 10*time.Second).Should(gexec.Exit(0))
			Expect(session.Out).To(gbytes.Say("a.txt"))
		})
	})

	Describe("-u / --update", func() {
		It("rewrites a hole-free mismatch in place and then passes", func() {
			path := filepath.Join(tempDir, "a.txt")
			writeCorpus(tempDir, "a.txt", "===\nstale\n===\necho hi\n---\nbye\n")

			cmd := exec.Command(cctrPath, "-u", tempDir)
			session, err = gexec.Start(cmd, GinkgoWriter, GinkgoWriter)
			Expect(err).NotTo(HaveOccurred())
			Eventually(session, 10*time.Second).Should(gexec.Exit(1))

			got, readErr := os.ReadFile(path)
			Expect(readErr).NotTo(HaveOccurred())
			Expect(string(got)).To(ContainSubstring("hi"))
			Expect(string(got)).NotTo(ContainSubstring("bye"))

			rerun := exec.Command(cctrPath, tempDir)
			session, err = gexec.Start(rerun, GinkgoWriter, GinkgoWriter)
			Expect(err).NotTo(HaveOccurred())
			Eventually(session, 10*time.Second).Should(gexec.Exit(0))
		})
	})

	Describe("discovery error", func() {
		It("exits 2 when the root does not exist", func() {
			cmd := exec.Command(cctrPath, filepath.Join(tempDir, "missing"))
			session, err = gexec.Start(cmd, GinkgoWriter, GinkgoWriter)
			Expect(err).NotTo(HaveOccurred())

			Eventually(session, 10*time.Second).Should(gexec.Exit(2))
		})
	})
})
