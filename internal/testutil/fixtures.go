package testutil

// ControllerSource is a Symfony controller whose class declaration sits on
// line 9. class controls the casing the naming extractor sees.
func ControllerSource(class string) string {
	return `<?php

namespace App\Controller;

use App\Service\UserService;
use Symfony\Bundle\FrameworkBundle\Controller\AbstractController;
use Symfony\Component\HttpFoundation\Response;

final class ` + class + ` extends AbstractController
{
    public function __construct(private UserService $users, private LoggerInterface $logger)
    {
    }

    public function show(int $userId): Response
    {
        $user = $this->users->find($userId);
        if (!$user) {
            throw new NotFoundHttpException('missing');
        }
        return $this->render('user/show.html.twig', ['user' => $user]);
    }
}
`
}

// VoterSource is the only Security/Voter of PHPShop
const VoterSource = `<?php

namespace App\Security;

use Symfony\Component\Security\Core\Authorization\Voter\Voter;

final class UserVoter extends Voter
{
    protected function supports(string $attribute, mixed $subject): bool
    {
        return $attribute === 'VIEW';
    }
}
`

// CandidatePath is where tests drop the controller under check
const CandidatePath = "src/Controller/ReportController.php"

// VoterPath is the Security/Voter of PHPShop
const VoterPath = "src/Security/UserVoter.php"

// PHPShop lays out a Symfony project with five reference controllers,
// four PascalCase and one snake_case, and a single voter
func PHPShop() map[string]string {
	return map[string]string{
		"composer.json":                        `{"name": "acme/shop", "autoload": {"psr-4": {"App\\": "src/"}}}`,
		"src/Controller/CartController.php":    ControllerSource("CartController"),
		"src/Controller/OrderController.php":   ControllerSource("OrderController"),
		"src/Controller/ProductController.php": ControllerSource("ProductController"),
		"src/Controller/UserController.php":    ControllerSource("UserController"),
		"src/Controller/LegacyController.php":  ControllerSource("legacy_controller"),
		VoterPath:                              VoterSource,
		"README.md":                            "# shop\n",
	}
}

// PHPShopWithCandidate is PHPShop plus a controller at CandidatePath
// declaring class
func PHPShopWithCandidate(class string) map[string]string {
	files := PHPShop()
	files[CandidatePath] = ControllerSource(class)
	return files
}
